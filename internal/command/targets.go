package command

import "canvas-agent/internal/model"

// Scope describes how a command or tool call wants its targets picked.
// Target is "selection", "artboard", "all" or empty.
type Scope struct {
	Target          string
	ObjectIDs       []string
	ArtboardID      string
	IncludeArtboard bool
}

// ScopeFromHint maps the bracket mini-language onto a Scope.
func ScopeFromHint(h Hint) Scope {
	return Scope{Target: h.Target(), IncludeArtboard: h.IncludeArtboard()}
}

// ResolveTargets is the planner's resolution order: hinted selection, then
// the active artboard, then every non-artboard object.
func ResolveTargets(snap *model.CanvasSnapshot, h Hint) []string {
	return Resolve(snap, ScopeFromHint(h))
}

// Resolve turns a scope into concrete object ids. The fallback order is
// selection (only when asked for), explicit ids, explicit artboard, active
// artboard and finally all non-artboard objects. Unknown ids are dropped.
// The result is always a fresh slice.
func Resolve(snap *model.CanvasSnapshot, sc Scope) []string {
	if sc.Target == TargetSelection && len(snap.SelectedObjectIDs) > 0 {
		return append([]string(nil), snap.SelectedObjectIDs...)
	}
	if len(sc.ObjectIDs) > 0 {
		ids := make([]string, 0, len(sc.ObjectIDs))
		for _, id := range sc.ObjectIDs {
			if _, ok := snap.Object(id); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			return ids
		}
	}
	if sc.Target != TargetAll {
		if sc.ArtboardID != "" {
			if ab, ok := snap.Artboard(sc.ArtboardID); ok {
				return artboardTargets(ab, sc.IncludeArtboard)
			}
		}
		if id := snap.ActiveArtboardID(); id != "" {
			ab, _ := snap.Artboard(id)
			return artboardTargets(ab, sc.IncludeArtboard)
		}
	}
	ids := make([]string, 0, len(snap.Objects))
	for _, o := range snap.Objects {
		if !o.IsArtboard {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func artboardTargets(ab model.ArtboardSnapshot, includeArtboard bool) []string {
	ids := make([]string, 0, len(ab.ObjectIDs)+1)
	if includeArtboard {
		ids = append(ids, ab.ID)
	}
	return append(ids, ab.ObjectIDs...)
}

// textTargets filters ids down to textboxes.
func textTargets(snap *model.CanvasSnapshot, ids []string) []string {
	out := []string{}
	for _, id := range ids {
		if o, ok := snap.Object(id); ok && o.IsText() {
			out = append(out, id)
		}
	}
	return out
}
