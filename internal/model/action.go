package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ActionType string

const (
	ActionMove         ActionType = "move"
	ActionResize       ActionType = "resize"
	ActionAlign        ActionType = "align"
	ActionAddText      ActionType = "add_text"
	ActionDelete       ActionType = "delete"
	ActionGroup        ActionType = "group"
	ActionSetFill      ActionType = "set_fill"
	ActionSetStroke    ActionType = "set_stroke"
	ActionSetOpacity   ActionType = "set_opacity"
	ActionSetTextStyle ActionType = "set_text_style"
	// ActionInsert re-inserts a complete object. It is produced as the
	// inverse of delete and by asset import; the planner never emits it.
	ActionInsert ActionType = "insert"
)

type HAlign string

const (
	AlignLeft    HAlign = "left"
	AlignCenterH HAlign = "center"
	AlignRight   HAlign = "right"
)

type VAlign string

const (
	AlignTop     VAlign = "top"
	AlignCenterV VAlign = "center"
	AlignBottom  VAlign = "bottom"
)

var textAligns = map[string]struct{}{"left": {}, "center": {}, "right": {}, "justify": {}}

// Params is the typed parameter record of one action kind. The set of
// implementations is closed to this package.
type Params interface {
	Kind() ActionType
	validate() error
}

// Action is the unit of mutation exchanged between planner, tools, executor
// and the undo history. Params always describe post-state values.
type Action struct {
	ObjectIDs []string
	Params    Params
}

func (a Action) Type() ActionType {
	if a.Params == nil {
		return ""
	}
	return a.Params.Kind()
}

var ErrMissingParams = errors.New("action params missing")

// Validate checks the action shape: known kind, target ids where required
// and the variant's own parameter constraints.
func (a Action) Validate() error {
	if a.Params == nil {
		return ErrMissingParams
	}
	switch a.Params.Kind() {
	case ActionAddText:
	case ActionInsert:
		if len(a.ObjectIDs) > 1 {
			return fmt.Errorf("%s: at most one object id", a.Params.Kind())
		}
	default:
		if len(a.ObjectIDs) == 0 {
			return fmt.Errorf("%s: objectIds required", a.Params.Kind())
		}
	}
	for _, id := range a.ObjectIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%s: empty object id", a.Params.Kind())
		}
	}
	if err := a.Params.validate(); err != nil {
		return fmt.Errorf("%s: %w", a.Params.Kind(), err)
	}
	return nil
}

type MoveParams struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

func (MoveParams) Kind() ActionType { return ActionMove }

func (p MoveParams) validate() error {
	if !finite(p.Left) || !finite(p.Top) {
		return errors.New("left/top must be finite")
	}
	return nil
}

type ResizeParams struct {
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
}

func (ResizeParams) Kind() ActionType { return ActionResize }

func (p ResizeParams) validate() error {
	if !finite(p.ScaleX) || !finite(p.ScaleY) || p.ScaleX <= 0 || p.ScaleY <= 0 {
		return errors.New("scale factors must be positive")
	}
	return nil
}

type AlignParams struct {
	Horizontal HAlign `json:"horizontal,omitempty"`
	Vertical   VAlign `json:"vertical,omitempty"`
}

func (AlignParams) Kind() ActionType { return ActionAlign }

func (p AlignParams) validate() error {
	if p.Horizontal == "" && p.Vertical == "" {
		return errors.New("horizontal or vertical required")
	}
	switch p.Horizontal {
	case "", AlignLeft, AlignCenterH, AlignRight:
	default:
		return fmt.Errorf("unknown horizontal alignment %q", p.Horizontal)
	}
	switch p.Vertical {
	case "", AlignTop, AlignCenterV, AlignBottom:
	default:
		return fmt.Errorf("unknown vertical alignment %q", p.Vertical)
	}
	return nil
}

type AddTextParams struct {
	Text       string   `json:"text"`
	Left       *float64 `json:"left,omitempty"`
	Top        *float64 `json:"top,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	ArtboardID string   `json:"artboardId,omitempty"`
}

func (AddTextParams) Kind() ActionType { return ActionAddText }

func (p AddTextParams) validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return errors.New("text required")
	}
	for _, v := range []*float64{p.Left, p.Top, p.FontSize} {
		if v != nil && !finite(*v) {
			return errors.New("numeric params must be finite")
		}
	}
	return nil
}

type DeleteParams struct{}

func (DeleteParams) Kind() ActionType { return ActionDelete }

func (DeleteParams) validate() error { return nil }

type GroupParams struct {
	Spacing *float64 `json:"spacing,omitempty"`
}

func (GroupParams) Kind() ActionType { return ActionGroup }

func (p GroupParams) validate() error {
	if p.Spacing != nil && !finite(*p.Spacing) {
		return errors.New("spacing must be finite")
	}
	return nil
}

type SetFillParams struct {
	Fill    string   `json:"fill"`
	Opacity *float64 `json:"opacity,omitempty"`
}

func (SetFillParams) Kind() ActionType { return ActionSetFill }

func (p SetFillParams) validate() error {
	if p.Opacity != nil && !finite(*p.Opacity) {
		return errors.New("opacity must be finite")
	}
	return nil
}

type SetStrokeParams struct {
	Stroke        string   `json:"stroke"`
	StrokeWidth   *float64 `json:"strokeWidth,omitempty"`
	StrokeOpacity *float64 `json:"strokeOpacity,omitempty"`
}

func (SetStrokeParams) Kind() ActionType { return ActionSetStroke }

func (p SetStrokeParams) validate() error {
	if strings.TrimSpace(p.Stroke) == "" {
		return errors.New("stroke required")
	}
	if p.StrokeWidth != nil && (!finite(*p.StrokeWidth) || *p.StrokeWidth < 0) {
		return errors.New("strokeWidth must be a non-negative number")
	}
	if p.StrokeOpacity != nil && !finite(*p.StrokeOpacity) {
		return errors.New("strokeOpacity must be finite")
	}
	return nil
}

type SetOpacityParams struct {
	Opacity float64 `json:"opacity"`
}

func (SetOpacityParams) Kind() ActionType { return ActionSetOpacity }

func (p SetOpacityParams) validate() error {
	if !finite(p.Opacity) {
		return errors.New("opacity must be finite")
	}
	return nil
}

type SetTextStyleParams struct {
	Fill       *string  `json:"fill,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
	FontWeight *string  `json:"fontWeight,omitempty"`
	TextAlign  *string  `json:"textAlign,omitempty"`
}

func (SetTextStyleParams) Kind() ActionType { return ActionSetTextStyle }

func (p SetTextStyleParams) validate() error {
	if p.Fill == nil && p.FontSize == nil && p.FontFamily == nil && p.FontWeight == nil && p.TextAlign == nil {
		return errors.New("at least one style field required")
	}
	if p.FontSize != nil && !finite(*p.FontSize) {
		return errors.New("fontSize must be finite")
	}
	// Empty strings mean "unset"; inverse actions use them to restore
	// objects that never had the field.
	if p.TextAlign != nil && *p.TextAlign != "" {
		if _, ok := textAligns[*p.TextAlign]; !ok {
			return fmt.Errorf("unknown textAlign %q", *p.TextAlign)
		}
	}
	return nil
}

type InsertParams struct {
	Object Object `json:"object"`
	Index  int    `json:"index"`
}

func (InsertParams) Kind() ActionType { return ActionInsert }

func (p InsertParams) validate() error {
	if strings.TrimSpace(p.Object.ID) == "" {
		return errors.New("object id required")
	}
	if _, ok := SupportedObjectTypes[p.Object.Type]; !ok {
		return fmt.Errorf("unknown object type %q", p.Object.Type)
	}
	return nil
}

type wireAction struct {
	Type      ActionType      `json:"type"`
	ObjectIDs []string        `json:"objectIds"`
	Params    json.RawMessage `json:"params"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	if a.Params == nil {
		return nil, ErrMissingParams
	}
	params, err := json.Marshal(a.Params)
	if err != nil {
		return nil, err
	}
	ids := a.ObjectIDs
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(wireAction{Type: a.Params.Kind(), ObjectIDs: ids, Params: params})
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var w wireAction
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	decode, ok := paramDecoders[w.Type]
	if !ok {
		return fmt.Errorf("unknown action type %q", w.Type)
	}
	p, err := decode(w.Params)
	if err != nil {
		return fmt.Errorf("decode %s params: %w", w.Type, err)
	}
	a.ObjectIDs = w.ObjectIDs
	a.Params = p
	return nil
}

var paramDecoders = map[ActionType]func(json.RawMessage) (Params, error){
	ActionMove:         decodeParams[MoveParams],
	ActionResize:       decodeParams[ResizeParams],
	ActionAlign:        decodeParams[AlignParams],
	ActionAddText:      decodeParams[AddTextParams],
	ActionDelete:       decodeParams[DeleteParams],
	ActionGroup:        decodeParams[GroupParams],
	ActionSetFill:      decodeParams[SetFillParams],
	ActionSetStroke:    decodeParams[SetStrokeParams],
	ActionSetOpacity:   decodeParams[SetOpacityParams],
	ActionSetTextStyle: decodeParams[SetTextStyleParams],
	ActionInsert:       decodeParams[InsertParams],
}

func decodeParams[T Params](raw json.RawMessage) (Params, error) {
	var p T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Float and String return pointers for optional params.
func Float(v float64) *float64 { return &v }

func String(v string) *string { return &v }
