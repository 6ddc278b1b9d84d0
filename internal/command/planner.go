// Package command turns free-text canvas instructions into typed actions and
// applies them to a scene, producing the inverse actions needed for undo.
package command

import (
	"fmt"
	"strings"

	"canvas-agent/internal/model"
)

const (
	MessageClarify         = "I'm not sure what to change. Try something like \"center everything\", \"move left by 20px\" or \"make the heading bold and blue\"."
	MessageUninterpretable = "I couldn't confidently interpret that."
)

// Result is the outcome of one planning call.
type Result struct {
	Actions []model.Action `json:"actions"`
	Message string         `json:"message"`
	// Targets are the ids the instruction resolved to.
	Targets []string `json:"targets"`
	// Rules names the rules that produced actions, in order.
	Rules []string `json:"rules,omitempty"`
}

// Plan derives actions for instruction against snap. It never fails: an
// instruction nothing recognises yields no actions and a clarification
// message. mem may be nil.
func Plan(instruction string, snap model.CanvasSnapshot, mem *model.PlannerMemory) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Actions: []model.Action{}, Message: MessageUninterpretable, Targets: []string{}}
		}
	}()

	hint, rest := ParseHint(instruction)
	c := &planContext{
		raw:         strings.TrimSpace(rest),
		text:        strings.ToLower(strings.TrimSpace(rest)),
		snap:        &snap,
		claimedHues: map[int]bool{},
	}
	c.targets = ResolveTargets(&snap, hint)
	if hint.Target() == "" && c.has(reReferent) {
		if ids, ok := rememberedTargets(&snap, mem); ok {
			c.targets = ids
			c.fromMemory = true
		}
	}

	res = Result{Actions: []model.Action{}, Targets: c.targets}
	for _, r := range rules {
		if !r.match(c) {
			continue
		}
		actions := r.build(c)
		if len(actions) == 0 {
			continue
		}
		res.Actions = append(res.Actions, actions...)
		res.Rules = append(res.Rules, r.name)
	}

	if len(res.Actions) == 0 {
		res.Message = MessageClarify
		return res
	}
	for _, a := range res.Actions {
		if err := a.Validate(); err != nil {
			return Result{Actions: []model.Action{}, Message: MessageUninterpretable, Targets: c.targets}
		}
	}
	res.Message = summarize(res.Actions)
	return res
}

func rememberedTargets(snap *model.CanvasSnapshot, mem *model.PlannerMemory) ([]string, bool) {
	if mem == nil || len(mem.LastTargetIDs) == 0 {
		return nil, false
	}
	for _, id := range mem.LastTargetIDs {
		if _, ok := snap.Object(id); !ok {
			return nil, false
		}
	}
	return append([]string(nil), mem.LastTargetIDs...), true
}

func summarize(actions []model.Action) string {
	seen := map[model.ActionType]bool{}
	kinds := []string{}
	objects := map[string]bool{}
	for _, a := range actions {
		if !seen[a.Type()] {
			seen[a.Type()] = true
			kinds = append(kinds, string(a.Type()))
		}
		for _, id := range a.ObjectIDs {
			objects[id] = true
		}
	}
	if len(objects) == 0 {
		return fmt.Sprintf("Applied %s.", strings.Join(kinds, ", "))
	}
	noun := "objects"
	if len(objects) == 1 {
		noun = "object"
	}
	return fmt.Sprintf("Applied %s to %d %s.", strings.Join(kinds, ", "), len(objects), noun)
}
