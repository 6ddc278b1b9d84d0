package tools

import (
	"sync"

	"canvas-agent/internal/model"
)

// Plan accumulates the actions of a sequence of tool calls. Every call
// reasons over the same snapshot; the plan is applied as one unit.
type Plan struct {
	mu      sync.Mutex
	snap    model.CanvasSnapshot
	actions []model.Action
}

func NewPlan(snap model.CanvasSnapshot) *Plan {
	return &Plan{snap: snap}
}

// Snapshot returns the snapshot the plan was opened against.
func (p *Plan) Snapshot() model.CanvasSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

func (p *Plan) push(actions ...model.Action) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, actions...)
	return len(p.actions)
}

// Actions returns a copy of the queued actions in call order.
func (p *Plan) Actions() []model.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Action, len(p.actions))
	copy(out, p.actions)
	return out
}

func (p *Plan) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.actions)
}
