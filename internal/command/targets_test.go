package command

import (
	"reflect"
	"testing"

	"canvas-agent/internal/scene"
)

func TestParseHint(t *testing.T) {
	h, rest := ParseHint("[target=selection, includeArtboard=true, source=layout] make it red")
	if rest != "make it red" {
		t.Fatalf("unexpected rest: %q", rest)
	}
	if h.Target() != TargetSelection || !h.IncludeArtboard() {
		t.Fatalf("unexpected hint: %v", h)
	}
	if h["source"] != "layout" {
		t.Fatalf("unknown key not preserved: %v", h)
	}

	h, rest = ParseHint("center everything")
	if len(h) != 0 || rest != "center everything" {
		t.Fatalf("unexpected parse without prefix: %v %q", h, rest)
	}
}

func precedenceScene() *scene.Memory {
	return newScene(
		artboard("ab", 0, 0, 500, 500),
		rect("inside", 10, 10, 50, 50),
		rect("outside", 600, 600, 50, 50),
	)
}

func TestResolveTargetsIsPure(t *testing.T) {
	snap := scene.Snapshot(precedenceScene(), []string{"outside"}, []string{"ab"})
	h, _ := ParseHint("[target=artboard,includeArtboard=true] x")
	first := ResolveTargets(&snap, h)
	second := ResolveTargets(&snap, h)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("unexpected drift: %v vs %v", first, second)
	}
	first[0] = "mutated"
	if third := ResolveTargets(&snap, h); third[0] != "ab" {
		t.Fatalf("result aliases snapshot: %v", third)
	}
}

func TestResolveTargetsPrecedence(t *testing.T) {
	snap := scene.Snapshot(precedenceScene(), []string{"outside"}, []string{"ab"})

	if got := ResolveTargets(&snap, Hint{}); !reflect.DeepEqual(got, []string{"inside"}) {
		t.Fatalf("unexpected default targets: %v", got)
	}
	if got := ResolveTargets(&snap, Hint{"target": "selection"}); !reflect.DeepEqual(got, []string{"outside"}) {
		t.Fatalf("unexpected selection targets: %v", got)
	}
	got := ResolveTargets(&snap, Hint{"target": "artboard", "includeArtboard": "true"})
	if !reflect.DeepEqual(got, []string{"ab", "inside"}) {
		t.Fatalf("unexpected artboard targets: %v", got)
	}
}

func TestResolveTargetsFallsBackWhenSelectionEmpty(t *testing.T) {
	snap := scene.Snapshot(precedenceScene(), nil, nil)
	// No active id: the first artboard is used.
	if got := ResolveTargets(&snap, Hint{"target": "selection"}); !reflect.DeepEqual(got, []string{"inside"}) {
		t.Fatalf("unexpected targets: %v", got)
	}

	flat := scene.Snapshot(newScene(rect("a", 0, 0, 10, 10), rect("b", 20, 0, 10, 10)), nil, nil)
	if got := ResolveTargets(&flat, Hint{}); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected targets without artboards: %v", got)
	}
}

func TestResolveScope(t *testing.T) {
	snap := scene.Snapshot(precedenceScene(), nil, []string{"ab"})

	got := Resolve(&snap, Scope{ObjectIDs: []string{"outside", "missing"}})
	if !reflect.DeepEqual(got, []string{"outside"}) {
		t.Fatalf("unexpected explicit targets: %v", got)
	}
	got = Resolve(&snap, Scope{ObjectIDs: []string{"missing"}, ArtboardID: "ab", IncludeArtboard: true})
	if !reflect.DeepEqual(got, []string{"ab", "inside"}) {
		t.Fatalf("unexpected artboard fallback: %v", got)
	}
	got = Resolve(&snap, Scope{Target: TargetAll})
	if !reflect.DeepEqual(got, []string{"inside", "outside"}) {
		t.Fatalf("unexpected all targets: %v", got)
	}
}

func TestNormalizeColor(t *testing.T) {
	cases := map[string]string{
		"red":         "#FF0000",
		"Navy":        "#000080",
		"#abc":        "#AABBCC",
		"#a1b2c3":     "#A1B2C3",
		"transparent": "transparent",
		"not-a-color": "not-a-color",
		"rgb(1,2,3)":  "rgb(1,2,3)",
	}
	for in, want := range cases {
		if got := NormalizeColor(in); got != want {
			t.Fatalf("unexpected color for %q: %q", in, got)
		}
	}
}
