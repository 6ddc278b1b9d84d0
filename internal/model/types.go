package model

import (
	"encoding/json"
	"math"
	"time"
)

type ObjectType string

const (
	TypeRect     ObjectType = "rect"
	TypeCircle   ObjectType = "circle"
	TypeEllipse  ObjectType = "ellipse"
	TypeTriangle ObjectType = "triangle"
	TypeLine     ObjectType = "line"
	TypePolygon  ObjectType = "polygon"
	TypeTextbox  ObjectType = "textbox"
	TypeImage    ObjectType = "image"
	TypeGroup    ObjectType = "group"
)

var SupportedObjectTypes = map[ObjectType]struct{}{
	TypeRect:     {},
	TypeCircle:   {},
	TypeEllipse:  {},
	TypeTriangle: {},
	TypeLine:     {},
	TypePolygon:  {},
	TypeTextbox:  {},
	TypeImage:    {},
	TypeGroup:    {},
}

// Object is a live scene object. Scenes hand out pointers and the executor
// mutates them in place.
type Object struct {
	ID            string     `json:"id"`
	Type          ObjectType `json:"type"`
	Name          string     `json:"name,omitempty"`
	Left          float64    `json:"left"`
	Top           float64    `json:"top"`
	Width         float64    `json:"width"`
	Height        float64    `json:"height"`
	ScaleX        float64    `json:"scaleX"`
	ScaleY        float64    `json:"scaleY"`
	Fill          string     `json:"fill,omitempty"`
	Stroke        string     `json:"stroke,omitempty"`
	StrokeWidth   float64    `json:"strokeWidth,omitempty"`
	StrokeOpacity *float64   `json:"strokeOpacity,omitempty"`
	Opacity       float64    `json:"opacity"`
	Text          string     `json:"text,omitempty"`
	FontSize      float64    `json:"fontSize,omitempty"`
	FontFamily    string     `json:"fontFamily,omitempty"`
	FontWeight    string     `json:"fontWeight,omitempty"`
	TextAlign     string     `json:"textAlign,omitempty"`
	Src           string     `json:"src,omitempty"`
	IsArtboard    bool       `json:"isArtboard,omitempty"`
}

func (o *Object) IsText() bool {
	return o.Type == TypeTextbox
}

func (o *Object) ScaledWidth() float64 {
	return o.Width * scaleOrOne(o.ScaleX)
}

func (o *Object) ScaledHeight() float64 {
	return o.Height * scaleOrOne(o.ScaleY)
}

func (o *Object) BoundingBox() BoundingBox {
	return NewBoundingBox(o.Left, o.Top, o.ScaledWidth(), o.ScaledHeight())
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	cp := *o
	if o.StrokeOpacity != nil {
		v := *o.StrokeOpacity
		cp.StrokeOpacity = &v
	}
	return &cp
}

// UnmarshalJSON defaults absent scale factors and opacity to 1.
func (o *Object) UnmarshalJSON(b []byte) error {
	type plain Object
	p := plain{ScaleX: 1, ScaleY: 1, Opacity: 1}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = Object(p)
	if o.ScaleX == 0 {
		o.ScaleX = 1
	}
	if o.ScaleY == 0 {
		o.ScaleY = 1
	}
	return nil
}

func scaleOrOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

type BoundingBox struct {
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Right   float64 `json:"right"`
	Bottom  float64 `json:"bottom"`
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
}

func NewBoundingBox(left, top, width, height float64) BoundingBox {
	return BoundingBox{
		Left:    left,
		Top:     top,
		Width:   width,
		Height:  height,
		Right:   left + width,
		Bottom:  top + height,
		CenterX: left + width/2,
		CenterY: top + height/2,
	}
}

// Contains reports whether other lies fully inside b.
func (b BoundingBox) Contains(other BoundingBox) bool {
	const eps = 1e-9
	return other.Left >= b.Left-eps && other.Top >= b.Top-eps &&
		other.Right <= b.Right+eps && other.Bottom <= b.Bottom+eps
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ObjectSnapshot struct {
	ID           string      `json:"id"`
	Type         ObjectType  `json:"type"`
	Name         string      `json:"name,omitempty"`
	Left         float64     `json:"left"`
	Top          float64     `json:"top"`
	Width        float64     `json:"width"`
	Height       float64     `json:"height"`
	ScaleX       float64     `json:"scaleX"`
	ScaleY       float64     `json:"scaleY"`
	ScaledWidth  float64     `json:"scaledWidth"`
	ScaledHeight float64     `json:"scaledHeight"`
	BoundingBox  BoundingBox `json:"boundingBox"`
	Fill         string      `json:"fill,omitempty"`
	Stroke       string      `json:"stroke,omitempty"`
	StrokeWidth  float64     `json:"strokeWidth"`
	Opacity      float64     `json:"opacity"`
	Text         string      `json:"text,omitempty"`
	FontSize     float64     `json:"fontSize,omitempty"`
	FontFamily   string      `json:"fontFamily,omitempty"`
	FontWeight   string      `json:"fontWeight,omitempty"`
	TextAlign    string      `json:"textAlign,omitempty"`
	IsArtboard   bool        `json:"isArtboard"`
}

func (s ObjectSnapshot) IsText() bool {
	return s.Type == TypeTextbox
}

type ArtboardSnapshot struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	BoundingBox BoundingBox `json:"boundingBox"`
	Size        Size        `json:"size"`
	ObjectIDs   []string    `json:"objectIds"`
}

type SnapshotSummary struct {
	ActiveArtboardIDs []string `json:"activeArtboardIds"`
	CanvasWidth       float64  `json:"canvasWidth"`
	CanvasHeight      float64  `json:"canvasHeight"`
	ObjectCount       int      `json:"objectCount"`
	ArtboardCount     int      `json:"artboardCount"`
}

// CanvasSnapshot is the read-only projection of a scene handed to the
// planner. It is rebuilt before every command.
type CanvasSnapshot struct {
	Objects           []ObjectSnapshot   `json:"objects"`
	Artboards         []ArtboardSnapshot `json:"artboards"`
	SelectedObjectIDs []string           `json:"selectedObjectIds"`
	Summary           SnapshotSummary    `json:"summary"`
}

func (s *CanvasSnapshot) Object(id string) (ObjectSnapshot, bool) {
	for _, o := range s.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return ObjectSnapshot{}, false
}

func (s *CanvasSnapshot) Artboard(id string) (ArtboardSnapshot, bool) {
	for _, a := range s.Artboards {
		if a.ID == id {
			return a, true
		}
	}
	return ArtboardSnapshot{}, false
}

// ActiveArtboardID returns the first active artboard, falling back to the
// first artboard in the snapshot.
func (s *CanvasSnapshot) ActiveArtboardID() string {
	for _, id := range s.Summary.ActiveArtboardIDs {
		if _, ok := s.Artboard(id); ok {
			return id
		}
	}
	if len(s.Artboards) > 0 {
		return s.Artboards[0].ID
	}
	return ""
}

// Document is a persisted canvas: its size, objects in z-order and the
// editor state the snapshot needs.
type Document struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Width             float64   `json:"width"`
	Height            float64   `json:"height"`
	Objects           []*Object `json:"objects"`
	Selection         []string  `json:"selection"`
	ActiveArtboardIDs []string  `json:"active_artboard_ids"`
	CreatedAt         int64     `json:"created_at_unix_ms"`
	UpdatedAt         int64     `json:"updated_at_unix_ms"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	cp := d
	cp.Objects = make([]*Object, 0, len(d.Objects))
	for _, o := range d.Objects {
		cp.Objects = append(cp.Objects, o.Clone())
	}
	cp.Selection = append([]string(nil), d.Selection...)
	cp.ActiveArtboardIDs = append([]string(nil), d.ActiveArtboardIDs...)
	return cp
}

// HistoryEntry is one atomic undo unit: the actions a command applied and
// the actions that revert them.
type HistoryEntry struct {
	ID          string   `json:"id"`
	Instruction string   `json:"instruction"`
	Forward     []Action `json:"forward"`
	Inverse     []Action `json:"inverse"`
	CreatedAt   int64    `json:"created_at_unix_ms"`
}

type History struct {
	Undo []HistoryEntry `json:"undo"`
	Redo []HistoryEntry `json:"redo"`
}

// PlannerMemory carries context from one command to the next.
type PlannerMemory struct {
	LastTargetIDs   []string `json:"last_target_ids"`
	LastInstruction string   `json:"last_instruction"`
	UpdatedAt       int64    `json:"updated_at_unix_ms"`
}

type StoredState struct {
	Documents         map[string]Document      `json:"documents"`
	Histories         map[string]History       `json:"histories"`
	Memories          map[string]PlannerMemory `json:"memories"`
	LastUpdatedUnixMS int64                    `json:"last_updated_unix_ms"`
	CreatedAt         time.Time                `json:"created_at"`
}

type Event struct {
	Type       string      `json:"type"`
	DocumentID string      `json:"document_id,omitempty"`
	Payload    interface{} `json:"payload"`
	CreatedAt  int64       `json:"created_at_unix_ms"`
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
