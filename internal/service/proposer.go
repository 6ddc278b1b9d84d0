package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"canvas-agent/internal/config"
	"canvas-agent/internal/model"
)

var ErrNoProposerKey = errors.New("proposer api key not configured")

// InstructionProposer rewrites an instruction the planner could not use into
// one it can. It never produces actions itself.
type InstructionProposer interface {
	Propose(ctx context.Context, instruction string, snap model.CanvasSnapshot) (string, error)
}

// Proposer asks an OpenAI-compatible chat model for a rephrasing.
type Proposer struct {
	client     *openai.Client
	apiKey     string
	model      string
	timeout    time.Duration
	phrasebook *Phrasebook
}

func NewProposer(cfg config.Config, phrasebook *Phrasebook) *Proposer {
	oc := openai.DefaultConfig(cfg.ProposerAPIKey)
	if cfg.ProposerBaseURL != "" {
		oc.BaseURL = cfg.ProposerBaseURL
	}
	timeoutSec := cfg.ProposerTimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = 12
	}
	return &Proposer{
		client:     openai.NewClientWithConfig(oc),
		apiKey:     cfg.ProposerAPIKey,
		model:      cfg.ProposerModel,
		timeout:    time.Duration(timeoutSec) * time.Second,
		phrasebook: phrasebook,
	}
}

func (p *Proposer) Propose(ctx context.Context, instruction string, snap model.CanvasSnapshot) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", ErrNoProposerKey
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: proposerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: p.userPrompt(instruction, snap)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("proposer chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("proposer returned empty choices")
	}

	var out struct {
		Instruction string `json:"instruction"`
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &out); err != nil {
		return "", fmt.Errorf("proposer response: %w", err)
	}
	return strings.TrimSpace(out.Instruction), nil
}

const proposerSystemPrompt = `You rewrite requests for a design canvas into short commands a rule-based planner understands.
Supported commands include:
- center everything / align left|right|top|bottom
- move left|right|up|down by N px
- make it bigger|smaller / resize to N%
- make it red|#RRGGBB / add a 2px black border / remove the border
- set opacity to N% / make the text bold / font size N / use Georgia
- align text center / arrange in a row with N px spacing
- add a heading "TEXT" / delete the selected objects
Reply with JSON only: {"instruction": "..."}. Use an empty string when nothing fits.`

func (p *Proposer) userPrompt(instruction string, snap model.CanvasSnapshot) string {
	type brief struct {
		ID   string           `json:"id"`
		Type model.ObjectType `json:"type"`
		Name string           `json:"name,omitempty"`
		Text string           `json:"text,omitempty"`
	}
	objects := make([]brief, 0, len(snap.Objects))
	for _, o := range snap.Objects {
		objects = append(objects, brief{ID: o.ID, Type: o.Type, Name: o.Name, Text: o.Text})
	}
	canvas, _ := json.Marshal(map[string]interface{}{
		"objects":   objects,
		"selection": snap.SelectedObjectIDs,
	})
	return fmt.Sprintf("Request: %s\nCanvas: %s\nHouse phrasings:\n%s",
		instruction, canvas, p.phrasebook.RenderContext(10))
}

// extractJSONObject returns the first balanced JSON object in s, tolerating
// code fences and surrounding prose.
func extractJSONObject(s string) string {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	t = strings.TrimSpace(t)

	start, depth := -1, 0
	inString, escaped := false, false
	for i := 0; i < len(t); i++ {
		ch := t[i]
		switch {
		case inString && escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case inString:
			inString = ch != '"'
		case ch == '"':
			inString = true
		case ch == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case ch == '}' && depth > 0:
			depth--
			if depth == 0 && start >= 0 {
				return t[start : i+1]
			}
		}
	}
	return t
}
