package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"canvas-agent/internal/model"
	"canvas-agent/internal/scene"
)

var ErrInvalidDocument = errors.New("invalid document")

// CreateDocument stores a new document. Missing sizes fall back to the
// given defaults and objects are normalized through a scene so every id is
// unique.
func (s *CommandService) CreateDocument(doc model.Document, defaultWidth, defaultHeight float64) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = uuid.NewString()
	}
	if _, err := s.store.GetDocument(doc.ID); err == nil {
		return model.Document{}, fmt.Errorf("%w: id %q already exists", ErrInvalidDocument, doc.ID)
	}
	if strings.TrimSpace(doc.Name) == "" {
		doc.Name = "Untitled"
	}
	if doc.Width <= 0 {
		doc.Width = defaultWidth
	}
	if doc.Height <= 0 {
		doc.Height = defaultHeight
	}
	if err := normalize(&doc); err != nil {
		return model.Document{}, err
	}
	doc.CreatedAt = s.now().UnixMilli()
	doc.UpdatedAt = doc.CreatedAt
	if err := s.store.PutDocument(doc); err != nil {
		return model.Document{}, err
	}
	s.logger.Info("document created", "document_id", doc.ID, "objects", len(doc.Objects))
	s.broadcast("document.created", doc.ID, doc)
	return doc, nil
}

// ReplaceDocument overwrites a document's content. History and planner
// memory no longer describe the new content and are cleared.
func (s *CommandService) ReplaceDocument(id string, doc model.Document) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.store.GetDocument(id)
	if err != nil {
		return model.Document{}, err
	}
	doc.ID = id
	doc.CreatedAt = prev.CreatedAt
	if strings.TrimSpace(doc.Name) == "" {
		doc.Name = prev.Name
	}
	if doc.Width <= 0 {
		doc.Width = prev.Width
	}
	if doc.Height <= 0 {
		doc.Height = prev.Height
	}
	if err := normalize(&doc); err != nil {
		return model.Document{}, err
	}
	doc.UpdatedAt = s.now().UnixMilli()
	if err := s.store.Commit(doc, model.History{}, &model.PlannerMemory{}); err != nil {
		return model.Document{}, err
	}
	s.broadcast("document.replaced", id, doc)
	return doc, nil
}

// SetSelection records the editor's selection and active artboards. Ids
// that do not exist are dropped.
func (s *CommandService) SetSelection(id string, selection, activeArtboardIDs []string) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.GetDocument(id)
	if err != nil {
		return model.Document{}, err
	}
	doc.Selection = selection
	doc.ActiveArtboardIDs = activeArtboardIDs
	scene.FromDocument(doc).ToDocument(&doc)
	if err := s.store.PutDocument(doc); err != nil {
		return model.Document{}, err
	}
	s.broadcast("selection.changed", id, map[string][]string{
		"selection":           doc.Selection,
		"active_artboard_ids": doc.ActiveArtboardIDs,
	})
	return doc, nil
}

func (s *CommandService) GetDocument(id string) (model.Document, error) {
	return s.store.GetDocument(id)
}

func (s *CommandService) ListDocuments() []model.Document {
	return s.store.ListDocuments()
}

func (s *CommandService) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.DeleteDocument(id); err != nil {
		return err
	}
	s.broadcast("document.deleted", id, map[string]string{"id": id})
	return nil
}

func (s *CommandService) History(id string) (model.History, error) {
	if _, err := s.store.GetDocument(id); err != nil {
		return model.History{}, err
	}
	return s.store.GetHistory(id), nil
}

func normalize(doc *model.Document) error {
	for i, o := range doc.Objects {
		if o == nil {
			return fmt.Errorf("%w: object %d is empty", ErrInvalidDocument, i)
		}
		if _, ok := model.SupportedObjectTypes[o.Type]; !ok {
			return fmt.Errorf("%w: object %d has unsupported type %q", ErrInvalidDocument, i, o.Type)
		}
		doc.Objects[i] = o.Clone()
	}
	scene.FromDocument(*doc).ToDocument(doc)
	return nil
}
