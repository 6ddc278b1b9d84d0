package tools

import (
	"errors"
	"strings"

	"canvas-agent/internal/command"
	"canvas-agent/internal/model"
)

var errNoTargets = errors.New("no objects matched the requested targets")

type MoveInput struct {
	Targeting
	Left *float64 `json:"left,omitempty" jsonschema:"description=Absolute left position in canvas pixels."`
	Top  *float64 `json:"top,omitempty" jsonschema:"description=Absolute top position in canvas pixels."`
	DX   *float64 `json:"dx,omitempty" jsonschema:"description=Horizontal offset added to the current position."`
	DY   *float64 `json:"dy,omitempty" jsonschema:"description=Vertical offset added to the current position."`
}

type ResizeInput struct {
	Targeting
	Scale  *float64 `json:"scale,omitempty" jsonschema:"exclusiveMinimum=0,maximum=10,description=Uniform scale factor."`
	ScaleX *float64 `json:"scaleX,omitempty" jsonschema:"exclusiveMinimum=0,maximum=10"`
	ScaleY *float64 `json:"scaleY,omitempty" jsonschema:"exclusiveMinimum=0,maximum=10"`
}

type AlignInput struct {
	Targeting
	Horizontal string `json:"horizontal,omitempty" jsonschema:"enum=left,enum=center,enum=right"`
	Vertical   string `json:"vertical,omitempty" jsonschema:"enum=top,enum=center,enum=bottom"`
}

type AddTextInput struct {
	Text       string   `json:"text" jsonschema:"minLength=1"`
	Left       *float64 `json:"left,omitempty"`
	Top        *float64 `json:"top,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty" jsonschema:"minimum=8,maximum=200"`
	ArtboardID string   `json:"artboardId,omitempty" jsonschema:"description=Artboard to centre the text in. Defaults to the active artboard."`
}

type DeleteInput struct {
	Targeting
}

type GroupInput struct {
	Targeting
	Spacing *float64 `json:"spacing,omitempty" jsonschema:"minimum=0,maximum=400,description=Gap between objects in pixels. Defaults to 20."`
}

type SetFillInput struct {
	Targeting
	Fill    string   `json:"fill" jsonschema:"minLength=1,description=CSS colour name or hex value."`
	Opacity *float64 `json:"opacity,omitempty" jsonschema:"minimum=0,maximum=1"`
}

type SetStrokeInput struct {
	Targeting
	Stroke        string   `json:"stroke" jsonschema:"minLength=1"`
	StrokeWidth   *float64 `json:"strokeWidth,omitempty" jsonschema:"minimum=0,maximum=100"`
	StrokeOpacity *float64 `json:"strokeOpacity,omitempty" jsonschema:"minimum=0,maximum=1"`
}

type SetOpacityInput struct {
	Targeting
	Opacity float64 `json:"opacity" jsonschema:"minimum=0,maximum=1"`
}

type SetTextStyleInput struct {
	Targeting
	Fill       *string  `json:"fill,omitempty" jsonschema:"minLength=1"`
	FontSize   *float64 `json:"fontSize,omitempty" jsonschema:"minimum=8,maximum=200"`
	FontFamily *string  `json:"fontFamily,omitempty" jsonschema:"minLength=1"`
	FontWeight *string  `json:"fontWeight,omitempty" jsonschema:"enum=normal,enum=bold,enum=100,enum=200,enum=300,enum=400,enum=500,enum=600,enum=700,enum=800,enum=900"`
	TextAlign  *string  `json:"textAlign,omitempty" jsonschema:"enum=left,enum=center,enum=right,enum=justify"`
}

func resolve(snap *model.CanvasSnapshot, t Targeting) ([]string, error) {
	ids := command.Resolve(snap, t.scope())
	if len(ids) == 0 {
		return nil, errNoTargets
	}
	return ids, nil
}

func buildMove(snap *model.CanvasSnapshot, in MoveInput) ([]model.Action, error) {
	if in.Left == nil && in.Top == nil && in.DX == nil && in.DY == nil {
		return nil, errors.New("one of left, top, dx or dy is required")
	}
	ids, err := resolve(snap, in.Targeting)
	if err != nil {
		return nil, err
	}
	out := make([]model.Action, 0, len(ids))
	for _, id := range ids {
		o, _ := snap.Object(id)
		p := model.MoveParams{Left: o.Left, Top: o.Top}
		if in.Left != nil {
			p.Left = *in.Left
		}
		if in.Top != nil {
			p.Top = *in.Top
		}
		if in.DX != nil {
			p.Left += *in.DX
		}
		if in.DY != nil {
			p.Top += *in.DY
		}
		out = append(out, model.Action{ObjectIDs: []string{id}, Params: p})
	}
	return out, nil
}

func buildResize(snap *model.CanvasSnapshot, in ResizeInput) ([]model.Action, error) {
	if in.Scale == nil && in.ScaleX == nil && in.ScaleY == nil {
		return nil, errors.New("one of scale, scaleX or scaleY is required")
	}
	ids, err := resolve(snap, in.Targeting)
	if err != nil {
		return nil, err
	}
	out := make([]model.Action, 0, len(ids))
	for _, id := range ids {
		o, _ := snap.Object(id)
		p := model.ResizeParams{ScaleX: o.ScaleX, ScaleY: o.ScaleY}
		if in.Scale != nil {
			p.ScaleX, p.ScaleY = *in.Scale, *in.Scale
		}
		if in.ScaleX != nil {
			p.ScaleX = *in.ScaleX
		}
		if in.ScaleY != nil {
			p.ScaleY = *in.ScaleY
		}
		out = append(out, model.Action{ObjectIDs: []string{id}, Params: p})
	}
	return out, nil
}

func buildAlign(snap *model.CanvasSnapshot, in AlignInput) ([]model.Action, error) {
	if in.Horizontal == "" && in.Vertical == "" {
		return nil, errors.New("horizontal or vertical is required")
	}
	ids, err := resolve(snap, in.Targeting)
	if err != nil {
		return nil, err
	}
	p := model.AlignParams{Horizontal: model.HAlign(in.Horizontal), Vertical: model.VAlign(in.Vertical)}
	return []model.Action{{ObjectIDs: ids, Params: p}}, nil
}

func buildAddText(snap *model.CanvasSnapshot, in AddTextInput) ([]model.Action, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, errors.New("text is required")
	}
	artboardID := in.ArtboardID
	if artboardID == "" {
		artboardID = snap.ActiveArtboardID()
	} else if _, ok := snap.Artboard(artboardID); !ok {
		return nil, errors.New("unknown artboard " + artboardID)
	}
	p := model.AddTextParams{Text: text, Left: in.Left, Top: in.Top, FontSize: in.FontSize, ArtboardID: artboardID}
	return []model.Action{{ObjectIDs: []string{}, Params: p}}, nil
}

func buildDelete(snap *model.CanvasSnapshot, in DeleteInput) ([]model.Action, error) {
	ids, err := resolve(snap, in.Targeting)
	if err != nil {
		return nil, err
	}
	return []model.Action{{ObjectIDs: ids, Params: model.DeleteParams{}}}, nil
}

func buildGroup(snap *model.CanvasSnapshot, in GroupInput) ([]model.Action, error) {
	ids, err := resolve(snap, in.Targeting)
	if err != nil {
		return nil, err
	}
	return []model.Action{{ObjectIDs: ids, Params: model.GroupParams{Spacing: in.Spacing}}}, nil
}

func buildSetFill(snap *model.CanvasSnapshot, in SetFillInput) ([]model.Action, error) {
	ids, err := resolve(snap, in.Targeting)
	if err != nil {
		return nil, err
	}
	p := model.SetFillParams{Fill: command.NormalizeColor(in.Fill), Opacity: in.Opacity}
	return []model.Action{{ObjectIDs: ids, Params: p}}, nil
}

func buildSetStroke(snap *model.CanvasSnapshot, in SetStrokeInput) ([]model.Action, error) {
	ids, err := resolve(snap, in.Targeting)
	if err != nil {
		return nil, err
	}
	p := model.SetStrokeParams{
		Stroke:        command.NormalizeColor(in.Stroke),
		StrokeWidth:   in.StrokeWidth,
		StrokeOpacity: in.StrokeOpacity,
	}
	return []model.Action{{ObjectIDs: ids, Params: p}}, nil
}

func buildSetOpacity(snap *model.CanvasSnapshot, in SetOpacityInput) ([]model.Action, error) {
	ids, err := resolve(snap, in.Targeting)
	if err != nil {
		return nil, err
	}
	return []model.Action{{ObjectIDs: ids, Params: model.SetOpacityParams{Opacity: in.Opacity}}}, nil
}

func buildSetTextStyle(snap *model.CanvasSnapshot, in SetTextStyleInput) ([]model.Action, error) {
	if in.Fill == nil && in.FontSize == nil && in.FontFamily == nil && in.FontWeight == nil && in.TextAlign == nil {
		return nil, errors.New("at least one style field is required")
	}
	ids, err := resolve(snap, in.Targeting)
	if err != nil {
		return nil, err
	}
	var text []string
	for _, id := range ids {
		if o, ok := snap.Object(id); ok && o.IsText() {
			text = append(text, id)
		}
	}
	if len(text) == 0 {
		return nil, errors.New("none of the targeted objects is a text box")
	}
	p := model.SetTextStyleParams{
		FontSize:   in.FontSize,
		FontFamily: in.FontFamily,
		FontWeight: in.FontWeight,
		TextAlign:  in.TextAlign,
	}
	if in.Fill != nil {
		p.Fill = model.String(command.NormalizeColor(*in.Fill))
	}
	return []model.Action{{ObjectIDs: text, Params: p}}, nil
}
