package tools

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"canvas-agent/internal/command"
	"canvas-agent/internal/model"
	"canvas-agent/internal/scene"
)

func testScene() *scene.Memory {
	return scene.NewMemory(1000, 800, []*model.Object{
		{ID: "ab", Type: model.TypeRect, Width: 500, Height: 500, ScaleX: 1, ScaleY: 1, Opacity: 1, IsArtboard: true},
		{ID: "r1", Type: model.TypeRect, Left: 10, Top: 10, Width: 50, Height: 50, ScaleX: 1, ScaleY: 1, Opacity: 1},
		{ID: "t1", Type: model.TypeTextbox, Left: 100, Top: 100, Width: 200, Height: 40, ScaleX: 1, ScaleY: 1, Opacity: 1, Text: "Hi", FontSize: 24},
		{ID: "r2", Type: model.TypeRect, Left: 700, Top: 600, Width: 50, Height: 50, ScaleX: 1, ScaleY: 1, Opacity: 1},
	})
}

func call(t *testing.T, tools map[string]Tool, name, params string) *Result {
	t.Helper()
	tool, ok := tools[name]
	if !ok {
		t.Fatalf("unknown tool %q", name)
	}
	res, err := tool.Execute(context.Background(), json.RawMessage(params))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestSchemasCompile(t *testing.T) {
	defs := Definitions()
	if len(defs) != len(Names) {
		t.Fatalf("unexpected definitions: %d", len(defs))
	}
	for _, d := range defs {
		var schema map[string]any
		if err := json.Unmarshal(d.Schema, &schema); err != nil {
			t.Fatalf("%s: invalid schema json: %v", d.Name, err)
		}
		if schema["type"] != "object" {
			t.Fatalf("%s: unexpected schema type: %v", d.Name, schema["type"])
		}
		if d.Description == "" {
			t.Fatalf("%s: missing description", d.Name)
		}
	}
	var opacity map[string]any
	_ = json.Unmarshal(New(nil)["set_opacity"].Schema(), &opacity)
	props := opacity["properties"].(map[string]any)
	for _, key := range []string{"objectIds", "target", "artboardId", "includeArtboard", "opacity"} {
		if _, ok := props[key]; !ok {
			t.Fatalf("set_opacity schema missing %q", key)
		}
	}
}

func TestToolsRejectInvalidInput(t *testing.T) {
	m := testScene()
	plan := NewPlan(scene.Snapshot(m, nil, []string{"ab"}))
	tools := New(plan)

	cases := map[string]string{
		"set_opacity":    `{"opacity": 1.5}`,
		"align":          `{"horizontal": "diagonal"}`,
		"add_text":       `{"fontSize": 12}`,
		"set_fill":       `{"objectIds": ["r1"]}`,
		"resize":         `{"scale": 0}`,
		"group":          `{"spacing": 1000}`,
		"set_text_style": `{"textAlign": "sideways"}`,
		"move":           `{"target": "everywhere", "dx": 1}`,
	}
	for name, params := range cases {
		res := call(t, tools, name, params)
		if !res.IsError {
			t.Fatalf("%s: expected validation error for %s", name, params)
		}
	}
	if plan.Len() != 0 {
		t.Fatalf("invalid calls queued actions: %v", plan.Actions())
	}
}

func TestToolsAccumulatePlan(t *testing.T) {
	m := testScene()
	plan := NewPlan(scene.Snapshot(m, []string{"r2"}, []string{"ab"}))
	tools := New(plan)

	if res := call(t, tools, "move", `{"target": "selection", "dx": -100}`); res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if res := call(t, tools, "set_fill", `{"fill": "red", "opacity": 0.5}`); res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if res := call(t, tools, "set_text_style", `{"fontWeight": "bold"}`); res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if res := call(t, tools, "add_text", `{"text": "Sale"}`); res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}

	actions := plan.Actions()
	if len(actions) != 4 {
		t.Fatalf("unexpected actions: %v", actions)
	}
	if got := actions[0].Params; got != (model.MoveParams{Left: 600, Top: 600}) || actions[0].ObjectIDs[0] != "r2" {
		t.Fatalf("unexpected move: %v %#v", actions[0].ObjectIDs, got)
	}
	fill := actions[1].Params.(model.SetFillParams)
	if fill.Fill != "#FF0000" || !reflect.DeepEqual(actions[1].ObjectIDs, []string{"r1", "t1"}) {
		t.Fatalf("unexpected fill: %v %#v", actions[1].ObjectIDs, fill)
	}
	if !reflect.DeepEqual(actions[2].ObjectIDs, []string{"t1"}) {
		t.Fatalf("text style should target text only: %v", actions[2].ObjectIDs)
	}
	if p := actions[3].Params.(model.AddTextParams); p.ArtboardID != "ab" {
		t.Fatalf("unexpected add_text params: %#v", p)
	}

	inverse := command.Execute(m, actions)
	r2, _ := m.Object("r2")
	if r2.Left != 600 {
		t.Fatalf("plan not applied: %v", r2.Left)
	}
	command.Execute(m, command.Reverse(inverse))
	if r2.Left != 700 || len(m.Objects()) != 4 {
		t.Fatalf("plan not reverted: %v %d", r2.Left, len(m.Objects()))
	}
}

func TestToolTargetingFallbacks(t *testing.T) {
	m := testScene()
	plan := NewPlan(scene.Snapshot(m, nil, nil))
	tools := New(plan)

	call(t, tools, "set_opacity", `{"objectIds": ["r2"], "opacity": 0.3}`)
	call(t, tools, "set_opacity", `{"artboardId": "ab", "includeArtboard": true, "opacity": 0.3}`)
	call(t, tools, "set_opacity", `{"target": "all", "opacity": 0.3}`)
	res := call(t, tools, "delete", `{"objectIds": ["missing"], "artboardId": "nope", "target": "selection"}`)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}

	got := [][]string{}
	for _, a := range plan.Actions() {
		got = append(got, a.ObjectIDs)
	}
	want := [][]string{{"r2"}, {"ab", "r1", "t1"}, {"r1", "t1", "r2"}, {"r1", "t1"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected targets: %v", got)
	}
}

func TestToolWithoutTextTargets(t *testing.T) {
	m := testScene()
	plan := NewPlan(scene.Snapshot(m, nil, nil))
	res := call(t, New(plan), "set_text_style", `{"objectIds": ["r1"], "fontSize": 40}`)
	if !res.IsError || !strings.Contains(res.Content, "text box") {
		t.Fatalf("unexpected result: %+v", res)
	}
}
