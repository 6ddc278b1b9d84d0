package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"

	"canvas-agent/internal/config"
	"canvas-agent/internal/model"
	"canvas-agent/internal/service"
	"canvas-agent/internal/storage"
	"canvas-agent/internal/tools"
	"canvas-agent/internal/ws"
)

type Handler struct {
	cfg        config.Config
	hub        *ws.Hub
	commandSvc *service.CommandService
	assetSvc   *service.AssetService
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

type apiError struct {
	Error string `json:"error"`
}

type instructionRequest struct {
	Instruction string `json:"instruction"`
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WebSocket subscribes the connection to one document's events, or to all
// of them when document_id is omitted.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("websocket requires GET"))
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	docID := strings.TrimSpace(r.URL.Query().Get("document_id"))
	if docID != "" {
		if _, err := h.commandSvc.GetDocument(docID); err != nil {
			writeServiceErr(w, err)
			return
		}
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "remote", r.RemoteAddr, "uri", r.RequestURI, "error", err)
		return
	}
	client := ws.NewClient(h.hub, conn, docID)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools.Definitions()})
}

func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{"documents": h.commandSvc.ListDocuments()})
	case http.MethodPost:
		var doc model.Document
		if err := decodeBody(r, &doc); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.commandSvc.CreateDocument(doc, h.cfg.CanvasWidth, h.cfg.CanvasHeight)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w)
	}
}

// DocumentRoutes dispatches /v1/documents/{id} and /v1/documents/{id}/{op}.
func (h *Handler) DocumentRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/documents/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 {
		writeErr(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		h.document(w, r, id)
		return
	}

	op := parts[1]
	if op == "history" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.history(w, id)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	switch op {
	case "command":
		h.command(w, r, id)
	case "preview":
		h.preview(w, r, id)
	case "undo":
		res, err := h.commandSvc.Undo(r.Context(), id)
		writeResult(w, res, err)
	case "redo":
		res, err := h.commandSvc.Redo(r.Context(), id)
		writeResult(w, res, err)
	case "tools":
		h.applyTools(w, r, id)
	case "selection":
		h.selection(w, r, id)
	case "images":
		h.importImage(w, r, id)
	default:
		writeErr(w, http.StatusNotFound, errors.New("not found"))
	}
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		doc, err := h.commandSvc.GetDocument(id)
		writeResult(w, doc, err)
	case http.MethodPut:
		var doc model.Document
		if err := decodeBody(r, &doc); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.commandSvc.ReplaceDocument(id, doc)
		writeResult(w, updated, err)
	case http.MethodDelete:
		if err := h.commandSvc.DeleteDocument(id); err != nil {
			writeServiceErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) history(w http.ResponseWriter, id string) {
	hist, err := h.commandSvc.History(id)
	writeResult(w, hist, err)
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request, id string) {
	instruction, ok := readInstruction(w, r)
	if !ok {
		return
	}
	res, err := h.commandSvc.Command(r.Context(), id, instruction)
	writeResult(w, res, err)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request, id string) {
	instruction, ok := readInstruction(w, r)
	if !ok {
		return
	}
	res, err := h.commandSvc.Preview(id, instruction)
	writeResult(w, res, err)
}

func (h *Handler) applyTools(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Calls []service.ToolCall `json:"calls"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	res, err := h.commandSvc.ApplyTools(r.Context(), id, req.Calls)
	if errors.Is(err, service.ErrToolCall) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": err.Error(), "calls": res.Calls})
		return
	}
	writeResult(w, res, err)
}

func (h *Handler) selection(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Selection         []string `json:"selection"`
		ActiveArtboardIDs []string `json:"active_artboard_ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	doc, err := h.commandSvc.SetSelection(id, req.Selection, req.ActiveArtboardIDs)
	writeResult(w, doc, err)
}

func (h *Handler) importImage(w http.ResponseWriter, r *http.Request, id string) {
	if h.assetSvc == nil {
		writeErr(w, http.StatusNotImplemented, errors.New("asset storage not configured"))
		return
	}
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSizeBytes); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	file, fileHeader, err := r.FormFile("image")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	if err := validateImageUpload(fileHeader); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	b, err := io.ReadAll(file)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	res, err := h.assetSvc.ImportImage(id, fileHeader.Filename, b)
	if err != nil && !errors.Is(err, storage.ErrDocumentNotFound) {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeResult(w, res, err)
}

func readInstruction(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req instructionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return "", false
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeErr(w, http.StatusBadRequest, errors.New("instruction required"))
		return "", false
	}
	return req.Instruction, true
}

func decodeBody(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func validateImageUpload(header *multipart.FileHeader) error {
	if header == nil {
		return errors.New("missing file")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
		return nil
	default:
		return errors.New("unsupported image format")
	}
}

func writeResult(w http.ResponseWriter, data interface{}, err error) {
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func writeServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrDocumentNotFound):
		writeErr(w, http.StatusNotFound, err)
	case errors.Is(err, service.ErrNothingToUndo), errors.Is(err, service.ErrNothingToRedo):
		writeErr(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrInvalidDocument),
		errors.Is(err, service.ErrUnknownTool),
		errors.Is(err, service.ErrNoToolCalls):
		writeErr(w, http.StatusBadRequest, err)
	default:
		writeErr(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, apiError{Error: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}
