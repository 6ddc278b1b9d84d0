package scene

import "canvas-agent/internal/model"

// Snapshot projects the live scene into the planner's read-only view.
// Selection and active artboard ids that do not resolve are dropped. Each
// non-artboard object is assigned to the first artboard, in z-order, whose
// bounds fully contain it.
func Snapshot(s Scene, selection, activeArtboardIDs []string) model.CanvasSnapshot {
	width, height := s.Size()
	objects := s.Objects()

	snap := model.CanvasSnapshot{
		Objects:           make([]model.ObjectSnapshot, 0, len(objects)),
		Artboards:         []model.ArtboardSnapshot{},
		SelectedObjectIDs: []string{},
		Summary: model.SnapshotSummary{
			ActiveArtboardIDs: []string{},
			CanvasWidth:       width,
			CanvasHeight:      height,
		},
	}

	artboardIdx := map[string]int{}
	for _, o := range objects {
		snap.Objects = append(snap.Objects, objectSnapshot(o))
		if o.IsArtboard {
			bb := o.BoundingBox()
			artboardIdx[o.ID] = len(snap.Artboards)
			snap.Artboards = append(snap.Artboards, model.ArtboardSnapshot{
				ID:          o.ID,
				Name:        o.Name,
				BoundingBox: bb,
				Size:        model.Size{Width: bb.Width, Height: bb.Height},
				ObjectIDs:   []string{},
			})
		}
	}

	for _, o := range objects {
		if o.IsArtboard {
			continue
		}
		bb := o.BoundingBox()
		for i := range snap.Artboards {
			if snap.Artboards[i].BoundingBox.Contains(bb) {
				snap.Artboards[i].ObjectIDs = append(snap.Artboards[i].ObjectIDs, o.ID)
				break
			}
		}
	}

	for _, id := range selection {
		if _, ok := s.Object(id); ok {
			snap.SelectedObjectIDs = append(snap.SelectedObjectIDs, id)
		}
	}
	for _, id := range activeArtboardIDs {
		if _, ok := artboardIdx[id]; ok {
			snap.Summary.ActiveArtboardIDs = append(snap.Summary.ActiveArtboardIDs, id)
		}
	}
	snap.Summary.ObjectCount = len(snap.Objects)
	snap.Summary.ArtboardCount = len(snap.Artboards)
	return snap
}

// DocumentSnapshot is Snapshot over a stored document.
func DocumentSnapshot(doc model.Document) model.CanvasSnapshot {
	return Snapshot(FromDocument(doc.Clone()), doc.Selection, doc.ActiveArtboardIDs)
}

func objectSnapshot(o *model.Object) model.ObjectSnapshot {
	bb := o.BoundingBox()
	snap := model.ObjectSnapshot{
		ID:           o.ID,
		Type:         o.Type,
		Name:         o.Name,
		Left:         o.Left,
		Top:          o.Top,
		Width:        o.Width,
		Height:       o.Height,
		ScaleX:       o.ScaleX,
		ScaleY:       o.ScaleY,
		ScaledWidth:  bb.Width,
		ScaledHeight: bb.Height,
		BoundingBox:  bb,
		Fill:         o.Fill,
		Stroke:       o.Stroke,
		StrokeWidth:  o.StrokeWidth,
		Opacity:      o.Opacity,
		IsArtboard:   o.IsArtboard,
	}
	if o.IsText() {
		snap.Text = o.Text
		snap.FontSize = o.FontSize
		snap.FontFamily = o.FontFamily
		snap.FontWeight = o.FontWeight
		snap.TextAlign = o.TextAlign
	}
	return snap
}
