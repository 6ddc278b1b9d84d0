package command

import (
	"canvas-agent/internal/model"
	"canvas-agent/internal/scene"
)

func rect(id string, left, top, w, h float64) *model.Object {
	return &model.Object{
		ID: id, Type: model.TypeRect,
		Left: left, Top: top, Width: w, Height: h,
		ScaleX: 1, ScaleY: 1, Opacity: 1,
		Fill: "#CCCCCC", Stroke: "#000000", StrokeWidth: 1, StrokeOpacity: model.Float(1),
	}
}

func textbox(id, text string, left, top float64) *model.Object {
	return &model.Object{
		ID: id, Type: model.TypeTextbox,
		Left: left, Top: top, Width: 200, Height: 40,
		ScaleX: 1, ScaleY: 1, Opacity: 1,
		Fill: "#111111", Text: text, FontSize: 24,
		FontFamily: "Inter", FontWeight: "normal", TextAlign: "left",
	}
}

func artboard(id string, left, top, w, h float64) *model.Object {
	return &model.Object{
		ID: id, Type: model.TypeRect, Name: id,
		Left: left, Top: top, Width: w, Height: h,
		ScaleX: 1, ScaleY: 1, Opacity: 1, Fill: "#FFFFFF", IsArtboard: true,
	}
}

func newScene(objects ...*model.Object) *scene.Memory {
	return scene.NewMemory(1000, 800, objects)
}

func cloneAll(objs []*model.Object) []*model.Object {
	out := make([]*model.Object, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Clone())
	}
	return out
}

func ids(actions []model.Action) [][]string {
	out := make([][]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.ObjectIDs)
	}
	return out
}
