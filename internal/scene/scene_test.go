package scene

import (
	"testing"

	"canvas-agent/internal/model"
)

func TestMemoryAddAssignsUniqueIDs(t *testing.T) {
	m := NewMemory(100, 100, []*model.Object{
		{ID: "a", Type: model.TypeRect},
		{ID: "a", Type: model.TypeRect},
		{Type: model.TypeCircle},
	})
	objs := m.Objects()
	if len(objs) != 3 || objs[0].ID != "a" || objs[1].ID == "a" || objs[2].ID == "" {
		t.Fatalf("unexpected ids: %s %s %s", objs[0].ID, objs[1].ID, objs[2].ID)
	}
	if objs[2].ScaleX != 1 || objs[2].ScaleY != 1 {
		t.Fatalf("scale not defaulted: %+v", objs[2])
	}
}

func TestMemoryRemoveAndInsertAtIndex(t *testing.T) {
	m := NewMemory(100, 100, []*model.Object{
		{ID: "a", Type: model.TypeRect},
		{ID: "b", Type: model.TypeRect},
		{ID: "c", Type: model.TypeRect},
	})
	b, _ := m.Object("b")
	idx, ok := m.Remove("b")
	if !ok || idx != 1 {
		t.Fatalf("unexpected remove: %d %v", idx, ok)
	}
	if _, ok := m.Remove("b"); ok {
		t.Fatalf("removed twice")
	}
	m.Add(b, idx)
	objs := m.Objects()
	if objs[0].ID != "a" || objs[1].ID != "b" || objs[2].ID != "c" {
		t.Fatalf("order not restored")
	}
}

func TestSnapshotAssignsArtboards(t *testing.T) {
	m := NewMemory(1000, 1000, []*model.Object{
		{ID: "ab1", Type: model.TypeRect, Width: 400, Height: 400, IsArtboard: true},
		{ID: "ab2", Type: model.TypeRect, Left: 500, Width: 400, Height: 400, IsArtboard: true},
		{ID: "in1", Type: model.TypeRect, Left: 10, Top: 10, Width: 50, Height: 50},
		{ID: "in2", Type: model.TypeRect, Left: 600, Top: 10, Width: 50, Height: 50},
		{ID: "across", Type: model.TypeRect, Left: 380, Top: 10, Width: 200, Height: 50},
	})
	snap := Snapshot(m, []string{"in1", "ghost"}, []string{"ab2", "in1"})

	if len(snap.Artboards) != 2 {
		t.Fatalf("unexpected artboards: %+v", snap.Artboards)
	}
	if ids := snap.Artboards[0].ObjectIDs; len(ids) != 1 || ids[0] != "in1" {
		t.Fatalf("unexpected ab1 members: %v", ids)
	}
	if ids := snap.Artboards[1].ObjectIDs; len(ids) != 1 || ids[0] != "in2" {
		t.Fatalf("unexpected ab2 members: %v", ids)
	}
	if len(snap.SelectedObjectIDs) != 1 || snap.SelectedObjectIDs[0] != "in1" {
		t.Fatalf("unexpected selection: %v", snap.SelectedObjectIDs)
	}
	if snap.ActiveArtboardID() != "ab2" || len(snap.Summary.ActiveArtboardIDs) != 1 {
		t.Fatalf("unexpected active artboards: %v", snap.Summary.ActiveArtboardIDs)
	}
	if snap.Summary.ObjectCount != 5 || snap.Summary.ArtboardCount != 2 {
		t.Fatalf("unexpected summary: %+v", snap.Summary)
	}
}

func TestSnapshotScaledBounds(t *testing.T) {
	m := NewMemory(500, 500, []*model.Object{
		{ID: "r", Type: model.TypeRect, Left: 10, Top: 20, Width: 100, Height: 40, ScaleX: 2, ScaleY: 0.5},
	})
	snap := Snapshot(m, nil, nil)
	o, ok := snap.Object("r")
	if !ok {
		t.Fatalf("object missing")
	}
	if o.ScaledWidth != 200 || o.ScaledHeight != 20 || o.BoundingBox.Right != 210 || o.BoundingBox.CenterY != 30 {
		t.Fatalf("unexpected bounds: %+v", o.BoundingBox)
	}
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`
name: Poster
objects:
  - id: t1
    type: textbox
    text: Hello
    width: 100
    height: 30
  - type: rect
    width: 10
    height: 10
selection: [t1, missing]
`), 640, 480)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Width != 640 || doc.Height != 480 || doc.Name != "Poster" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(doc.Objects) != 2 || doc.Objects[1].ID == "" || doc.Objects[0].Opacity != 1 {
		t.Fatalf("unexpected objects: %+v", doc.Objects)
	}
	if len(doc.Selection) != 1 || doc.Selection[0] != "t1" {
		t.Fatalf("unexpected selection: %v", doc.Selection)
	}

	if _, err := ParseDocument([]byte("objects:\n  - type: blob\n"), 1, 1); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := ParseDocument([]byte("objects: [\n"), 1, 1); err == nil {
		t.Fatalf("expected parse error")
	}
}
