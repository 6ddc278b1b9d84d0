package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"canvas-agent/internal/config"
	"canvas-agent/internal/model"
	"canvas-agent/internal/service"
	"canvas-agent/internal/storage"
	"canvas-agent/internal/ws"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewStore(filepath.Join(dir, "state.json"), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hub := ws.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	svc := service.NewCommandService(store, nil, nil, hub, nil)
	assets, err := service.NewAssetService(filepath.Join(dir, "assets"), svc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := config.Config{CanvasWidth: 1000, CanvasHeight: 800, MaxUploadSizeBytes: 1 << 20}
	return NewRouter(cfg, hub, svc, assets, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unexpected body %q: %v", rec.Body.String(), err)
	}
}

const seedDocument = `{"id":"doc","name":"Poster","objects":[
	{"id":"r1","type":"rect","left":100,"top":100,"width":100,"height":50,"fill":"#00FF00"}
]}`

func TestHealthz(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestDocumentLifecycle(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/documents", seedDocument)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}
	var doc model.Document
	decode(t, rec, &doc)
	if doc.Width != 1000 || doc.Height != 800 || doc.Objects[0].ScaleX != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}

	if rec := do(t, h, http.MethodPost, "/v1/documents", seedDocument); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate id accepted: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/documents", "")
	var list struct {
		Documents []model.Document `json:"documents"`
	}
	decode(t, rec, &list)
	if len(list.Documents) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = do(t, h, http.MethodPost, "/v1/documents/doc/selection", `{"selection":["r1","ghost"]}`)
	decode(t, rec, &doc)
	if rec.Code != http.StatusOK || len(doc.Selection) != 1 {
		t.Fatalf("unexpected selection response: %d %+v", rec.Code, doc)
	}

	if rec := do(t, h, http.MethodDelete, "/v1/documents/doc", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected delete status: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/v1/documents/doc", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status after delete: %d", rec.Code)
	}
}

func TestCommandUndoRedoEndpoints(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/v1/documents", seedDocument)

	rec := do(t, h, http.MethodPost, "/v1/documents/doc/command", `{"instruction":"move right by 30px"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}
	var res service.CommandResult
	decode(t, rec, &res)
	if len(res.Actions) != 1 || res.Document.Objects[0].Left != 130 {
		t.Fatalf("unexpected command result: %+v", res)
	}

	rec = do(t, h, http.MethodPost, "/v1/documents/doc/undo", "")
	var step service.HistoryResult
	decode(t, rec, &step)
	if rec.Code != http.StatusOK || step.Document.Objects[0].Left != 100 {
		t.Fatalf("unexpected undo: %d %+v", rec.Code, step)
	}
	if rec := do(t, h, http.MethodPost, "/v1/documents/doc/undo", ""); rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status for empty undo: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/v1/documents/doc/redo", ""); rec.Code != http.StatusOK {
		t.Fatalf("unexpected redo status: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/documents/doc/history", "")
	var hist model.History
	decode(t, rec, &hist)
	if len(hist.Undo) != 1 || len(hist.Redo) != 0 {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestCommandValidation(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/v1/documents", seedDocument)

	if rec := do(t, h, http.MethodPost, "/v1/documents/doc/command", `{"instruction":"  "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty instruction accepted: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/v1/documents/missing/command", `{"instruction":"center"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/v1/documents/doc/command", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/v1/documents/doc/explode", "{}"); rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/v1/documents", seedDocument)

	rec := do(t, h, http.MethodPost, "/v1/documents/doc/preview", `{"instruction":"make it blue"}`)
	var plan struct {
		Actions []model.Action `json:"actions"`
	}
	decode(t, rec, &plan)
	if len(plan.Actions) != 1 || plan.Actions[0].Type() != model.ActionSetFill {
		t.Fatalf("unexpected preview: %s", rec.Body.String())
	}
	rec = do(t, h, http.MethodGet, "/v1/documents/doc", "")
	var doc model.Document
	decode(t, rec, &doc)
	if doc.Objects[0].Fill != "#00FF00" {
		t.Fatalf("preview mutated the document")
	}
}

func TestToolsEndpoints(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/v1/documents", seedDocument)

	rec := do(t, h, http.MethodGet, "/v1/tools", "")
	var defs struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	decode(t, rec, &defs)
	if len(defs.Tools) != 10 {
		t.Fatalf("unexpected tool list: %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/v1/documents/doc/tools",
		`{"calls":[{"name":"set_opacity","arguments":{"objectIds":["r1"],"opacity":0.5}}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}
	var res service.ToolsResult
	decode(t, rec, &res)
	if res.Document.Objects[0].Opacity != 0.5 {
		t.Fatalf("unexpected opacity: %+v", res.Document.Objects[0])
	}

	rec = do(t, h, http.MethodPost, "/v1/documents/doc/tools",
		`{"calls":[{"name":"set_opacity","arguments":{"objectIds":["r1"],"opacity":7}}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status for invalid tool input: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/v1/documents/doc/tools", `{"calls":[{"name":"nope"}]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status for unknown tool: %d", rec.Code)
	}
}

func TestImageUploadAndServe(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/v1/documents", seedDocument)

	var img bytes.Buffer
	if err := imaging.Encode(&img, imaging.New(40, 20, color.NRGBA{B: 255, A: 255}), imaging.PNG); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "dot.png")
	_, _ = fw.Write(img.Bytes())
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/doc/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}
	var res service.ImportResult
	decode(t, rec, &res)
	if res.Object.Width != 40 || res.Object.Height != 20 {
		t.Fatalf("unexpected object: %+v", res.Object)
	}

	rec = do(t, h, http.MethodGet, res.Object.Src, "")
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("asset not served: %d", rec.Code)
	}
}

func TestImageUploadRejectsUnknownExtension(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/v1/documents", seedDocument)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "notes.txt")
	_, _ = fw.Write([]byte("hello"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/doc/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	h := newTestRouter(t)
	if rec := do(t, h, http.MethodGet, "/v1/ws", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/v1/ws", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/v1/documents", seedDocument)
	do(t, h, http.MethodPost, "/v1/documents/doc/command", `{"instruction":"center everything"}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "canvas_agent_commands_total") {
		t.Fatalf("metrics missing command counter")
	}
}
