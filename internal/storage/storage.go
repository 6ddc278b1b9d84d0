package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"canvas-agent/internal/model"
)

var ErrDocumentNotFound = errors.New("document not found")

type Store struct {
	path         string
	historyLimit int
	mu           sync.RWMutex
	state        model.StoredState
}

// NewStore opens the JSON state file at path, creating it when missing.
// Undo and redo stacks keep at most historyLimit entries each.
func NewStore(path string, historyLimit int) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if historyLimit <= 0 {
		return nil, errors.New("history limit must be > 0")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &Store{path: path, historyLimit: historyLimit}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = defaultState()
			return s.saveLocked()
		}
		return err
	}
	if len(b) == 0 {
		s.state = defaultState()
		return s.saveLocked()
	}

	var state model.StoredState
	if err := json.Unmarshal(b, &state); err != nil {
		return err
	}
	mergeDefaults(&state)
	s.state = state
	return nil
}

func defaultState() model.StoredState {
	return model.StoredState{
		Documents: map[string]model.Document{},
		Histories: map[string]model.History{},
		Memories:  map[string]model.PlannerMemory{},
		CreatedAt: time.Now().UTC(),
	}
}

func mergeDefaults(state *model.StoredState) {
	if state.Documents == nil {
		state.Documents = map[string]model.Document{}
	}
	if state.Histories == nil {
		state.Histories = map[string]model.History{}
	}
	if state.Memories == nil {
		state.Memories = map[string]model.PlannerMemory{}
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
}

// saveLocked writes through a temp file so a crash never leaves a
// truncated state file behind.
func (s *Store) saveLocked() error {
	s.state.LastUpdatedUnixMS = time.Now().UnixMilli()
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) PutDocument(doc model.Document) error {
	if doc.ID == "" {
		return errors.New("document id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Documents[doc.ID] = doc.Clone()
	return s.saveLocked()
}

func (s *Store) GetDocument(id string) (model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.state.Documents[id]
	if !ok {
		return model.Document{}, ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

// ListDocuments returns documents oldest first.
func (s *Store) ListDocuments() []model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Document, 0, len(s.state.Documents))
	for _, d := range s.state.Documents {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Documents[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(s.state.Documents, id)
	delete(s.state.Histories, id)
	delete(s.state.Memories, id)
	return s.saveLocked()
}

func (s *Store) GetHistory(id string) model.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.state.Histories[id]
	return model.History{
		Undo: append([]model.HistoryEntry{}, h.Undo...),
		Redo: append([]model.HistoryEntry{}, h.Redo...),
	}
}

func (s *Store) GetMemory(id string) model.PlannerMemory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.state.Memories[id]
	m.LastTargetIDs = append([]string(nil), m.LastTargetIDs...)
	return m
}

// Commit stores a mutated document together with its history and planner
// memory in one write. A nil mem leaves the stored memory untouched.
func (s *Store) Commit(doc model.Document, history model.History, mem *model.PlannerMemory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Documents[doc.ID]; !ok {
		return ErrDocumentNotFound
	}
	s.state.Documents[doc.ID] = doc.Clone()
	s.state.Histories[doc.ID] = model.History{
		Undo: trim(history.Undo, s.historyLimit),
		Redo: trim(history.Redo, s.historyLimit),
	}
	if mem != nil {
		s.state.Memories[doc.ID] = *mem
	}
	return s.saveLocked()
}

// trim keeps the newest limit entries; stacks grow at the end.
func trim(entries []model.HistoryEntry, limit int) []model.HistoryEntry {
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]model.HistoryEntry{}, entries...)
}
