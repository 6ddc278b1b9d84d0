package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"canvas-agent/internal/command"
	"canvas-agent/internal/model"
	"canvas-agent/internal/scene"
	"canvas-agent/internal/storage"
	"canvas-agent/internal/tools"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrUnknownTool   = errors.New("unknown tool")
	ErrToolCall      = errors.New("tool call failed")
	ErrNoToolCalls   = errors.New("no tool calls")
)

// Broadcaster receives document events after every committed change.
type Broadcaster interface {
	BroadcastEvent(evt model.Event)
}

// CommandService plans and applies instructions against stored documents.
// Commands are serialized so each one plans against the state the previous
// one left behind.
type CommandService struct {
	mu         sync.Mutex
	store      *storage.Store
	phrasebook *Phrasebook
	proposer   InstructionProposer
	events     Broadcaster
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewCommandService wires the service. phrasebook, proposer and events may
// be nil.
func NewCommandService(store *storage.Store, phrasebook *Phrasebook, proposer InstructionProposer, events Broadcaster, logger *slog.Logger) *CommandService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandService{
		store:      store,
		phrasebook: phrasebook,
		proposer:   proposer,
		events:     events,
		metrics:    NewMetrics(),
		logger:     logger.With("component", "command"),
		now:        time.Now,
	}
}

// CommandResult reports what one instruction did to a document.
type CommandResult struct {
	DocumentID     string         `json:"document_id"`
	Instruction    string         `json:"instruction"`
	Interpreted    string         `json:"interpreted"`
	Proposed       bool           `json:"proposed"`
	Message        string         `json:"message"`
	Actions        []model.Action `json:"actions"`
	Inverse        []model.Action `json:"inverse"`
	Targets        []string       `json:"targets"`
	HistoryEntryID string         `json:"history_entry_id,omitempty"`
	Document       model.Document `json:"document"`
}

// Command plans instruction against the document and applies the result as
// one undoable entry. An instruction that yields no actions changes nothing
// and returns the planner's clarification message.
func (s *CommandService) Command(ctx context.Context, docID, instruction string) (CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.GetDocument(docID)
	if err != nil {
		return CommandResult{}, err
	}
	mem := s.store.GetMemory(docID)
	snap := scene.DocumentSnapshot(doc)

	interpreted := s.phrasebook.Rewrite(instruction)
	res := s.plan(interpreted, snap, &mem)
	proposed := false
	if len(res.Actions) == 0 {
		if alt, ok := s.propose(ctx, interpreted, snap); ok {
			if altRes := s.plan(alt, snap, &mem); len(altRes.Actions) > 0 {
				res, interpreted, proposed = altRes, alt, true
			}
		}
	}

	out := CommandResult{
		DocumentID:  docID,
		Instruction: instruction,
		Interpreted: interpreted,
		Proposed:    proposed,
		Message:     res.Message,
		Actions:     res.Actions,
		Inverse:     []model.Action{},
		Targets:     res.Targets,
		Document:    doc,
	}
	if len(res.Actions) == 0 {
		s.metrics.RecordCommand("clarify")
		s.logger.Info("command not understood", "document_id", docID, "instruction", instruction)
		return out, nil
	}

	entry, doc, err := s.commit(doc, instruction, res.Actions, s.store.GetHistory(docID), true)
	if err != nil {
		return CommandResult{}, err
	}
	out.Inverse = entry.Inverse
	out.HistoryEntryID = entry.ID
	out.Document = doc

	s.metrics.RecordCommand("applied")
	s.logger.Info("command applied",
		"document_id", docID,
		"actions", len(res.Actions),
		"rules", strings.Join(res.Rules, ","),
		"proposed", proposed,
	)
	s.broadcast("command.applied", docID, out)
	return out, nil
}

// Preview plans instruction without touching the document.
func (s *CommandService) Preview(docID, instruction string) (command.Result, error) {
	doc, err := s.store.GetDocument(docID)
	if err != nil {
		return command.Result{}, err
	}
	mem := s.store.GetMemory(docID)
	return s.plan(s.phrasebook.Rewrite(instruction), scene.DocumentSnapshot(doc), &mem), nil
}

func (s *CommandService) plan(instruction string, snap model.CanvasSnapshot, mem *model.PlannerMemory) command.Result {
	start := time.Now()
	res := command.Plan(instruction, snap, mem)
	s.metrics.ObservePlan(time.Since(start))
	return res
}

// propose asks the proposer for a rephrasing. The target hint of the
// original instruction is carried over when the proposal has none.
func (s *CommandService) propose(ctx context.Context, instruction string, snap model.CanvasSnapshot) (string, bool) {
	if s.proposer == nil {
		return "", false
	}
	alt, err := s.proposer.Propose(ctx, instruction, snap)
	switch {
	case errors.Is(err, ErrNoProposerKey):
		return "", false
	case err != nil:
		s.metrics.RecordProposal("error")
		s.logger.Warn("proposer failed", "error", err)
		return "", false
	case alt == "" || strings.EqualFold(alt, instruction):
		s.metrics.RecordProposal("empty")
		return "", false
	}
	s.metrics.RecordProposal("ok")
	if prefix, _ := splitHintPrefix(instruction); prefix != "" {
		if p, _ := splitHintPrefix(alt); p == "" {
			alt = prefix + alt
		}
	}
	return alt, true
}

// commit executes actions on doc, records the history entry and stores
// everything in one write. A fresh command clears the redo stack.
func (s *CommandService) commit(doc model.Document, instruction string, actions []model.Action, history model.History, remember bool) (model.HistoryEntry, model.Document, error) {
	m := scene.FromDocument(doc)
	inverse := command.Execute(m, actions)
	m.ToDocument(&doc)
	doc.UpdatedAt = s.now().UnixMilli()

	entry := model.HistoryEntry{
		ID:          uuid.NewString(),
		Instruction: instruction,
		Forward:     actions,
		Inverse:     inverse,
		CreatedAt:   doc.UpdatedAt,
	}
	history.Undo = append(history.Undo, entry)
	history.Redo = nil

	var mem *model.PlannerMemory
	if remember {
		mem = &model.PlannerMemory{
			LastTargetIDs:   touchedIDs(m, actions, inverse),
			LastInstruction: instruction,
			UpdatedAt:       doc.UpdatedAt,
		}
	}
	if err := s.store.Commit(doc, history, mem); err != nil {
		return model.HistoryEntry{}, model.Document{}, fmt.Errorf("commit %s: %w", doc.ID, err)
	}
	s.metrics.RecordActions(actionTypes(actions))
	return entry, doc, nil
}

// touchedIDs lists the live objects a command acted on, including ones it
// created, which only appear as targets of inverse deletes.
func touchedIDs(m *scene.Memory, forward, inverse []model.Action) []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(ids []string) {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, ok := m.Object(id); ok {
				out = append(out, id)
			}
		}
	}
	for _, a := range forward {
		add(a.ObjectIDs)
	}
	for _, a := range inverse {
		if a.Type() == model.ActionDelete {
			add(a.ObjectIDs)
		}
	}
	return out
}

func actionTypes(actions []model.Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, string(a.Type()))
	}
	return out
}

// HistoryResult reports an undo or redo.
type HistoryResult struct {
	DocumentID string             `json:"document_id"`
	Entry      model.HistoryEntry `json:"entry"`
	UndoDepth  int                `json:"undo_depth"`
	RedoDepth  int                `json:"redo_depth"`
	Document   model.Document     `json:"document"`
}

// Undo reverts the newest command. Replaying its inverse yields a fresh
// inverse, which becomes the redo entry.
func (s *CommandService) Undo(ctx context.Context, docID string) (HistoryResult, error) {
	return s.step(ctx, docID, true)
}

func (s *CommandService) Redo(ctx context.Context, docID string) (HistoryResult, error) {
	return s.step(ctx, docID, false)
}

func (s *CommandService) step(ctx context.Context, docID string, undo bool) (HistoryResult, error) {
	if err := ctx.Err(); err != nil {
		return HistoryResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.GetDocument(docID)
	if err != nil {
		return HistoryResult{}, err
	}
	history := s.store.GetHistory(docID)
	from, to := &history.Undo, &history.Redo
	direction, empty := "undo", ErrNothingToUndo
	if !undo {
		from, to = &history.Redo, &history.Undo
		direction, empty = "redo", ErrNothingToRedo
	}
	if len(*from) == 0 {
		return HistoryResult{}, empty
	}
	top := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]

	m := scene.FromDocument(doc)
	replay := command.Reverse(top.Inverse)
	inverse := command.Restore(m, replay)
	m.ToDocument(&doc)
	doc.UpdatedAt = s.now().UnixMilli()

	entry := model.HistoryEntry{
		ID:          top.ID,
		Instruction: top.Instruction,
		Forward:     replay,
		Inverse:     inverse,
		CreatedAt:   doc.UpdatedAt,
	}
	*to = append(*to, entry)
	if err := s.store.Commit(doc, history, nil); err != nil {
		return HistoryResult{}, fmt.Errorf("commit %s: %w", docID, err)
	}

	s.metrics.RecordHistory(direction)
	s.logger.Info("history step", "document_id", docID, "direction", direction, "entry_id", entry.ID)
	out := HistoryResult{
		DocumentID: docID,
		Entry:      entry,
		UndoDepth:  len(history.Undo),
		RedoDepth:  len(history.Redo),
		Document:   doc,
	}
	s.broadcast("history."+direction, docID, out)
	return out, nil
}

// ToolCall is one named tool invocation with JSON arguments.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type ToolCallResult struct {
	Name   string        `json:"name"`
	Result *tools.Result `json:"result"`
}

type ToolsResult struct {
	DocumentID     string           `json:"document_id"`
	Calls          []ToolCallResult `json:"calls"`
	Actions        []model.Action   `json:"actions"`
	Inverse        []model.Action   `json:"inverse"`
	HistoryEntryID string           `json:"history_entry_id,omitempty"`
	Document       model.Document   `json:"document"`
}

// ApplyTools runs calls in order against one snapshot and applies the
// accumulated actions as a single history entry. Nothing is applied when
// any call fails.
func (s *CommandService) ApplyTools(ctx context.Context, docID string, calls []ToolCall) (ToolsResult, error) {
	if len(calls) == 0 {
		return ToolsResult{}, ErrNoToolCalls
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.GetDocument(docID)
	if err != nil {
		return ToolsResult{}, err
	}
	plan := tools.NewPlan(scene.DocumentSnapshot(doc))
	registry := tools.New(plan)

	out := ToolsResult{DocumentID: docID, Calls: make([]ToolCallResult, 0, len(calls)), Inverse: []model.Action{}}
	for _, call := range calls {
		tool, ok := registry[call.Name]
		if !ok {
			return out, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
		}
		args := call.Arguments
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		res, err := tool.Execute(ctx, args)
		if err != nil {
			return out, err
		}
		out.Calls = append(out.Calls, ToolCallResult{Name: call.Name, Result: res})
		if res.IsError {
			return out, fmt.Errorf("%w: %s: %s", ErrToolCall, call.Name, res.Content)
		}
	}

	out.Actions = plan.Actions()
	out.Document = doc
	if len(out.Actions) == 0 {
		return out, nil
	}
	entry, doc, err := s.commit(doc, "tools: "+toolNames(calls), out.Actions, s.store.GetHistory(docID), true)
	if err != nil {
		return out, err
	}
	out.Inverse = entry.Inverse
	out.HistoryEntryID = entry.ID
	out.Document = doc

	s.metrics.RecordCommand("tools")
	s.logger.Info("tool calls applied", "document_id", docID, "calls", len(calls), "actions", len(out.Actions))
	s.broadcast("tools.applied", docID, out)
	return out, nil
}

func toolNames(calls []ToolCall) string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return strings.Join(names, ",")
}

// ApplyActions applies already-built actions as one history entry without
// touching planner memory.
func (s *CommandService) ApplyActions(docID, label string, actions []model.Action) (model.HistoryEntry, model.Document, error) {
	for _, a := range actions {
		if err := a.Validate(); err != nil {
			return model.HistoryEntry{}, model.Document{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.GetDocument(docID)
	if err != nil {
		return model.HistoryEntry{}, model.Document{}, err
	}
	entry, doc, err := s.commit(doc, label, actions, s.store.GetHistory(docID), false)
	if err != nil {
		return model.HistoryEntry{}, model.Document{}, err
	}
	s.broadcast("actions.applied", docID, map[string]interface{}{"entry": entry, "document": doc})
	return entry, doc, nil
}

func (s *CommandService) broadcast(eventType, docID string, payload interface{}) {
	if s.events == nil {
		return
	}
	s.events.BroadcastEvent(model.Event{
		Type:       eventType,
		DocumentID: docID,
		Payload:    payload,
		CreatedAt:  s.now().UnixMilli(),
	})
}

// splitHintPrefix separates a leading "[key=value]" hint from the rest of
// the instruction.
func splitHintPrefix(instruction string) (string, string) {
	hint, rest := command.ParseHint(instruction)
	if len(hint) == 0 || !strings.HasSuffix(instruction, rest) {
		return "", instruction
	}
	return instruction[:len(instruction)-len(rest)], rest
}
