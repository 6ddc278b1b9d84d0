package command

import (
	"math"
	"sort"

	"canvas-agent/internal/model"
	"canvas-agent/internal/scene"
)

// Execute applies actions to s in order and returns the inverse actions in
// application order; replaying them in reverse restores the prior state.
// Ids that do not resolve are skipped. Exactly one render is requested.
func Execute(s scene.Scene, actions []model.Action) []model.Action {
	return run(s, actions, false)
}

// Restore replays recorded pre-states, typically Reverse(inverse), without
// clamping, so objects that started out of bounds land exactly where they
// were. It returns the inverse of the replay like Execute does.
func Restore(s scene.Scene, actions []model.Action) []model.Action {
	return run(s, actions, true)
}

func run(s scene.Scene, actions []model.Action, exact bool) []model.Action {
	e := executor{scene: s, exact: exact, inverse: []model.Action{}}
	e.canvasW, e.canvasH = s.Size()
	for _, a := range actions {
		e.apply(a)
	}
	s.RequestRender()
	return e.inverse
}

// Reverse returns actions in reverse order, the order an inverse list must
// be replayed in.
func Reverse(actions []model.Action) []model.Action {
	out := make([]model.Action, len(actions))
	for i, a := range actions {
		out[len(actions)-1-i] = a
	}
	return out
}

type executor struct {
	scene   scene.Scene
	canvasW float64
	canvasH float64
	// exact disables clamping for replayed pre-states.
	exact   bool
	inverse []model.Action
}

func (e *executor) push(id string, p model.Params) {
	e.inverse = append(e.inverse, model.Action{ObjectIDs: []string{id}, Params: p})
}

// each calls fn for every id that resolves to a live object.
func (e *executor) each(ids []string, fn func(*model.Object)) {
	for _, id := range ids {
		if o, ok := e.scene.Object(id); ok {
			fn(o)
		}
	}
}

func (e *executor) place(o *model.Object, left, top float64) {
	if e.exact {
		o.Left, o.Top = left, top
		return
	}
	o.Left, o.Top = clampPosition(left, top, o.ScaledWidth(), o.ScaledHeight(), e.canvasW, e.canvasH)
}

func (e *executor) clamp(v float64, fn func(float64) float64) float64 {
	if e.exact {
		return v
	}
	return fn(v)
}

func (e *executor) apply(a model.Action) {
	switch p := a.Params.(type) {
	case model.MoveParams:
		e.each(a.ObjectIDs, func(o *model.Object) {
			e.push(o.ID, model.MoveParams{Left: o.Left, Top: o.Top})
			e.place(o, p.Left, p.Top)
		})
	case model.ResizeParams:
		e.each(a.ObjectIDs, func(o *model.Object) {
			e.push(o.ID, model.ResizeParams{ScaleX: o.ScaleX, ScaleY: o.ScaleY})
			o.ScaleX = e.clamp(p.ScaleX, clampScale)
			o.ScaleY = e.clamp(p.ScaleY, clampScale)
		})
	case model.AlignParams:
		e.each(a.ObjectIDs, func(o *model.Object) { e.align(o, p) })
	case model.AddTextParams:
		e.addText(p)
	case model.DeleteParams:
		for _, id := range a.ObjectIDs {
			o, ok := e.scene.Object(id)
			if !ok {
				continue
			}
			snapshot := o.Clone()
			if idx, ok := e.scene.Remove(id); ok {
				e.push(id, model.InsertParams{Object: *snapshot, Index: idx})
			}
		}
	case model.InsertParams:
		obj := p.Object.Clone()
		id := e.scene.Add(obj, p.Index)
		e.push(id, model.DeleteParams{})
	case model.GroupParams:
		e.arrange(a.ObjectIDs, p)
	case model.SetFillParams:
		e.each(a.ObjectIDs, func(o *model.Object) {
			e.push(o.ID, model.SetFillParams{Fill: o.Fill, Opacity: model.Float(o.Opacity)})
			o.Fill = p.Fill
			if p.Opacity != nil {
				o.Opacity = e.clamp(*p.Opacity, clampOpacity)
			}
		})
	case model.SetStrokeParams:
		e.each(a.ObjectIDs, func(o *model.Object) { e.setStroke(o, p) })
	case model.SetOpacityParams:
		e.each(a.ObjectIDs, func(o *model.Object) {
			e.push(o.ID, model.SetOpacityParams{Opacity: o.Opacity})
			o.Opacity = e.clamp(p.Opacity, clampOpacity)
		})
	case model.SetTextStyleParams:
		e.each(a.ObjectIDs, func(o *model.Object) { e.setTextStyle(o, p) })
	}
}

// align positions against the whole canvas with a fixed edge inset. The
// inverse is a move back to where the object was.
func (e *executor) align(o *model.Object, p model.AlignParams) {
	e.push(o.ID, model.MoveParams{Left: o.Left, Top: o.Top})
	w, h := o.ScaledWidth(), o.ScaledHeight()
	left, top := o.Left, o.Top
	switch p.Horizontal {
	case model.AlignLeft:
		left = EdgeInset
	case model.AlignCenterH:
		left = (e.canvasW - w) / 2
	case model.AlignRight:
		left = e.canvasW - w - EdgeInset
	}
	switch p.Vertical {
	case model.AlignTop:
		top = EdgeInset
	case model.AlignCenterV:
		top = (e.canvasH - h) / 2
	case model.AlignBottom:
		top = e.canvasH - h - EdgeInset
	}
	e.place(o, left, top)
}

func (e *executor) addText(p model.AddTextParams) {
	size := defaultTextFontSize
	if p.FontSize != nil {
		size = clampFontSize(*p.FontSize)
	}
	o := &model.Object{
		Type:       model.TypeTextbox,
		Text:       p.Text,
		FontSize:   size,
		FontFamily: defaultTextFontFamily,
		FontWeight: "normal",
		TextAlign:  "left",
		Fill:       defaultTextFill,
		Opacity:    1,
		ScaleX:     1,
		ScaleY:     1,
	}
	o.Width, o.Height = estimateTextSize(p.Text, size)
	if e.canvasW > 0 && o.Width > e.canvasW {
		o.Width = e.canvasW
	}

	// Default position centres the text in its artboard, else the canvas.
	frame := model.NewBoundingBox(0, 0, e.canvasW, e.canvasH)
	if ab, ok := e.scene.Object(p.ArtboardID); ok && ab.IsArtboard {
		frame = ab.BoundingBox()
	}
	left := frame.Left + (frame.Width-o.Width)/2
	top := frame.Top + (frame.Height-o.Height)/2
	if p.Left != nil {
		left = *p.Left
	}
	if p.Top != nil {
		top = *p.Top
	}
	e.place(o, left, top)

	id := e.scene.Add(o, -1)
	e.push(id, model.DeleteParams{})
}

// estimateTextSize approximates a single-line textbox. Rendering owns the
// real metrics; this only needs to be stable for positioning.
func estimateTextSize(text string, fontSize float64) (float64, float64) {
	w := math.Max(float64(len([]rune(text)))*fontSize*0.6, fontSize)
	return round2(w), round2(fontSize * 1.16)
}

// arrange lays objects out left to right by current left edge, starting at
// the leftmost object's position.
func (e *executor) arrange(ids []string, p model.GroupParams) {
	spacing := DefaultSpacing
	if p.Spacing != nil {
		spacing = clampSpacing(*p.Spacing)
	}
	var objs []*model.Object
	e.each(ids, func(o *model.Object) { objs = append(objs, o) })
	if len(objs) == 0 {
		return
	}
	sort.SliceStable(objs, func(i, j int) bool { return objs[i].Left < objs[j].Left })
	x, y := objs[0].Left, objs[0].Top
	for _, o := range objs {
		e.push(o.ID, model.MoveParams{Left: o.Left, Top: o.Top})
		e.place(o, x, y)
		x += o.ScaledWidth() + spacing
	}
}

func (e *executor) setStroke(o *model.Object, p model.SetStrokeParams) {
	prev := model.SetStrokeParams{Stroke: o.Stroke, StrokeWidth: model.Float(o.StrokeWidth), StrokeOpacity: model.Float(1)}
	if prev.Stroke == "" {
		prev.Stroke = "transparent"
	}
	if o.StrokeOpacity != nil {
		prev.StrokeOpacity = model.Float(*o.StrokeOpacity)
	}
	e.push(o.ID, prev)

	o.Stroke = p.Stroke
	if p.StrokeWidth != nil {
		o.StrokeWidth = math.Max(0, *p.StrokeWidth)
	}
	if p.StrokeOpacity != nil {
		o.StrokeOpacity = model.Float(e.clamp(*p.StrokeOpacity, clampOpacity))
	}
}

// setTextStyle ignores non-text objects. The inverse always carries all
// five style fields.
func (e *executor) setTextStyle(o *model.Object, p model.SetTextStyleParams) {
	if !o.IsText() {
		return
	}
	prev := model.SetTextStyleParams{
		Fill:       model.String(o.Fill),
		FontFamily: model.String(o.FontFamily),
		FontWeight: model.String(o.FontWeight),
		TextAlign:  model.String(o.TextAlign),
	}
	// A zero size was never set; restoring it would clamp to the minimum.
	if o.FontSize > 0 {
		prev.FontSize = model.Float(o.FontSize)
	}
	e.push(o.ID, prev)

	if p.Fill != nil {
		o.Fill = *p.Fill
	}
	if p.FontSize != nil {
		o.FontSize = e.clamp(*p.FontSize, clampFontSize)
	}
	if p.FontFamily != nil {
		o.FontFamily = *p.FontFamily
	}
	if p.FontWeight != nil {
		o.FontWeight = *p.FontWeight
	}
	if p.TextAlign != nil {
		o.TextAlign = *p.TextAlign
	}
}
