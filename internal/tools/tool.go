// Package tools exposes the canvas action vocabulary as discrete named tools
// for step-by-step callers such as an LLM tool loop. Each call is validated
// against its JSON schema and queues actions on a shared Plan; nothing is
// applied until the plan is executed.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"

	"canvas-agent/internal/command"
	"canvas-agent/internal/model"
)

// Tool is one callable operation.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Result is what the caller sees after a tool call. Input problems are
// reported here with IsError set, not as Go errors.
type Result struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Targeting is shared by every tool that acts on existing objects.
type Targeting struct {
	ObjectIDs       []string `json:"objectIds,omitempty" jsonschema:"description=Explicit object ids to act on."`
	Target          string   `json:"target,omitempty" jsonschema:"enum=selection,enum=artboard,enum=all,description=Use the current selection or the artboard or every object."`
	ArtboardID      string   `json:"artboardId,omitempty" jsonschema:"description=Artboard whose objects are targeted."`
	IncludeArtboard bool     `json:"includeArtboard,omitempty" jsonschema:"description=Also target the artboard object itself."`
}

func (t Targeting) scope() command.Scope {
	return command.Scope{
		Target:          t.Target,
		ObjectIDs:       t.ObjectIDs,
		ArtboardID:      t.ArtboardID,
		IncludeArtboard: t.IncludeArtboard,
	}
}

// actionTool adapts a typed input and a builder into a Tool.
type actionTool[T any] struct {
	name        string
	description string
	plan        *Plan
	build       func(snap *model.CanvasSnapshot, in T) ([]model.Action, error)
}

func (t *actionTool[T]) Name() string        { return t.name }
func (t *actionTool[T]) Description() string { return t.description }

func (t *actionTool[T]) Schema() json.RawMessage {
	s, err := schemaFor[T](t.name)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return s.raw
}

func (t *actionTool[T]) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.plan == nil {
		return toolError("no plan is open"), nil
	}
	s, err := schemaFor[T](t.name)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", t.name, err)
	}
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(params, &decoded); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if err := s.compiled.Validate(decoded); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	var in T
	if err := json.Unmarshal(params, &in); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	snap := t.plan.Snapshot()
	actions, err := t.build(&snap, in)
	if err != nil {
		return toolError(err.Error()), nil
	}
	for _, a := range actions {
		if err := a.Validate(); err != nil {
			return toolError(err.Error()), nil
		}
	}
	total := t.plan.push(actions...)
	return jsonResult(map[string]any{
		"queued":  len(actions),
		"actions": actions,
		"planned": total,
	}), nil
}

type compiledSchema struct {
	raw      json.RawMessage
	compiled *validator.Schema
}

var schemaCache sync.Map

// schemaFor reflects T into a JSON schema once per tool name.
func schemaFor[T any](name string) (*compiledSchema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		if s, ok := cached.(*compiledSchema); ok {
			return s, nil
		}
	}
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	raw, err := json.Marshal(r.Reflect(new(T)))
	if err != nil {
		return nil, err
	}
	compiled, err := validator.CompileString("tool_"+name+".json", string(raw))
	if err != nil {
		return nil, err
	}
	s := &compiledSchema{raw: raw, compiled: compiled}
	schemaCache.Store(name, s)
	return s, nil
}

func toolError(message string) *Result {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &Result{Content: message, IsError: true}
	}
	return &Result{Content: string(payload), IsError: true}
}

func jsonResult(payload any) *Result {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err))
	}
	return &Result{Content: string(encoded)}
}
