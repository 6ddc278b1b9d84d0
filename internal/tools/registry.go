package tools

import "encoding/json"

// Names lists the tools in a stable order.
var Names = []string{
	"move", "resize", "align", "add_text", "delete", "group",
	"set_fill", "set_stroke", "set_opacity", "set_text_style",
}

// New binds every tool to plan.
func New(plan *Plan) map[string]Tool {
	return map[string]Tool{
		"move": &actionTool[MoveInput]{
			name: "move", plan: plan, build: buildMove,
			description: "Move objects to an absolute position or by a relative offset. Positions are clamped to the canvas.",
		},
		"resize": &actionTool[ResizeInput]{
			name: "resize", plan: plan, build: buildResize,
			description: "Set absolute scale factors for objects. Use scale for uniform scaling.",
		},
		"align": &actionTool[AlignInput]{
			name: "align", plan: plan, build: buildAlign,
			description: "Align objects to the canvas edges or centre. Edges use a 20px inset.",
		},
		"add_text": &actionTool[AddTextInput]{
			name: "add_text", plan: plan, build: buildAddText,
			description: "Add a text box. Without a position the text is centred in the artboard.",
		},
		"delete": &actionTool[DeleteInput]{
			name: "delete", plan: plan, build: buildDelete,
			description: "Delete objects from the canvas.",
		},
		"group": &actionTool[GroupInput]{
			name: "group", plan: plan, build: buildGroup,
			description: "Arrange objects left to right with even spacing, starting from the leftmost one.",
		},
		"set_fill": &actionTool[SetFillInput]{
			name: "set_fill", plan: plan, build: buildSetFill,
			description: "Set the fill colour and optionally the opacity of objects.",
		},
		"set_stroke": &actionTool[SetStrokeInput]{
			name: "set_stroke", plan: plan, build: buildSetStroke,
			description: "Set the border colour, width and opacity of objects.",
		},
		"set_opacity": &actionTool[SetOpacityInput]{
			name: "set_opacity", plan: plan, build: buildSetOpacity,
			description: "Set object opacity between 0 and 1.",
		},
		"set_text_style": &actionTool[SetTextStyleInput]{
			name: "set_text_style", plan: plan, build: buildSetTextStyle,
			description: "Change colour, size, family, weight or alignment of text boxes. Other objects are ignored.",
		},
	}
}

// Definition describes a tool for callers that need to advertise it.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

func Definitions() []Definition {
	all := New(nil)
	out := make([]Definition, 0, len(Names))
	for _, name := range Names {
		t := all[name]
		out = append(out, Definition{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	return out
}
