package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"canvas-agent/internal/config"
	"canvas-agent/internal/model"
)

func TestExtractJSONObject(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"instruction\":\"center\"}\n```": `{"instruction":"center"}`,
		`Sure! {"instruction":"say \"}\" twice"} ok`: `{"instruction":"say \"}\" twice"}`,
		`{"a":{"b":1}}`:                              `{"a":{"b":1}}`,
	}
	for in, want := range cases {
		if got := extractJSONObject(in); got != want {
			t.Fatalf("extractJSONObject(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProposerWithoutKey(t *testing.T) {
	p := NewProposer(config.Config{ProposerModel: "m"}, nil)
	if _, err := p.Propose(context.Background(), "x", model.CanvasSnapshot{}); !errors.Is(err, ErrNoProposerKey) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProposerParsesChatResponse(t *testing.T) {
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"` +
			"```json\\n{\\\"instruction\\\": \\\"make it bigger\\\"}\\n```" + `"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := config.Config{
		ProposerBaseURL:    srv.URL,
		ProposerAPIKey:     "secret",
		ProposerModel:      "test-model",
		ProposerTimeoutSec: 5,
	}
	snap := model.CanvasSnapshot{Objects: []model.ObjectSnapshot{{ID: "logo", Type: model.TypeImage}}}
	got, err := NewProposer(cfg, nil).Propose(context.Background(), "make the logo pop", snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "make it bigger" {
		t.Fatalf("unexpected instruction: %q", got)
	}
	if gotBody.Model != "test-model" || len(gotBody.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", gotBody)
	}
	if !strings.Contains(gotBody.Messages[1].Content, "make the logo pop") || !strings.Contains(gotBody.Messages[1].Content, `"logo"`) {
		t.Fatalf("user prompt missing context: %s", gotBody.Messages[1].Content)
	}
}

func TestProposerSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	cfg := config.Config{ProposerBaseURL: srv.URL, ProposerAPIKey: "k", ProposerModel: "m", ProposerTimeoutSec: 5}
	if _, err := NewProposer(cfg, nil).Propose(context.Background(), "x", model.CanvasSnapshot{}); err == nil {
		t.Fatalf("expected error for unauthorized response")
	}
}
