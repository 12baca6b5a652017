// Package openaimodel implements the reflection model port on the OpenAI API.
package openaimodel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/example/speckit/internal/ports/secondary"
)

const reflectSystemPrompt = `You distill reusable engineering guidance from pipeline transcripts.
Extract short, actionable playbook bullets. Each bullet is one sentence.
Classify each bullet as helpful, harmful, or neutral and assign a confidence
between 0 and 1. Respond with a JSON object: {"bullets": [{"text": ...,
"kind": ..., "scope": ..., "confidence": ..., "tags": [...]}]}. No prose.`

const curateSystemPrompt = `You curate a playbook of engineering guidance bullets.
Merge the candidate bullets into the existing set: drop duplicates, rewrite
near-duplicates into one stronger bullet, keep distinct guidance separate.
Respond with a JSON object: {"bullets": [{"text": ..., "kind": ..., "scope":
..., "confidence": ..., "tags": [...]}]} containing only bullets to upsert.
No prose.`

// ReflectModel calls an OpenAI-compatible endpoint for reflect and curate.
type ReflectModel struct {
	client openai.Client
	model  string
}

// NewReflectModel creates a reflection model client. An empty baseURL uses
// the default OpenAI endpoint.
func NewReflectModel(model, apiKey, baseURL string) *ReflectModel {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ReflectModel{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

type bulletEnvelope struct {
	Bullets []struct {
		Text       string   `json:"text"`
		Kind       string   `json:"kind"`
		Scope      string   `json:"scope"`
		Confidence float64  `json:"confidence"`
		Tags       []string `json:"tags"`
	} `json:"bullets"`
}

// Reflect extracts candidate bullets from a stage transcript.
func (m *ReflectModel) Reflect(ctx context.Context, transcript string) ([]secondary.ReflectedBullet, error) {
	return m.complete(ctx, reflectSystemPrompt, transcript)
}

// Curate merges candidates into the existing playbook.
func (m *ReflectModel) Curate(ctx context.Context, existing, candidates []secondary.ReflectedBullet) ([]secondary.ReflectedBullet, error) {
	payload := struct {
		Existing   []secondary.ReflectedBullet `json:"existing"`
		Candidates []secondary.ReflectedBullet `json:"candidates"`
	}{Existing: existing, Candidates: candidates}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode curation input: %w", err)
	}
	return m.complete(ctx, curateSystemPrompt, string(data))
}

func (m *ReflectModel) complete(ctx context.Context, system, user string) ([]secondary.ReflectedBullet, error) {
	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("reflection model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("reflection model returned no choices")
	}
	return parseBullets(resp.Choices[0].Message.Content)
}

// parseBullets decodes the model's JSON envelope, tolerating markdown fences.
func parseBullets(content string) ([]secondary.ReflectedBullet, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	var envelope bulletEnvelope
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return nil, fmt.Errorf("reflection output is not valid JSON: %w", err)
	}
	bullets := make([]secondary.ReflectedBullet, 0, len(envelope.Bullets))
	for _, b := range envelope.Bullets {
		if strings.TrimSpace(b.Text) == "" {
			continue
		}
		kind := b.Kind
		switch kind {
		case "helpful", "harmful", "neutral":
		default:
			kind = "neutral"
		}
		conf := b.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		scope := b.Scope
		if scope == "" {
			scope = "global"
		}
		bullets = append(bullets, secondary.ReflectedBullet{
			Text:       strings.TrimSpace(b.Text),
			Kind:       kind,
			Scope:      scope,
			Confidence: conf,
			Tags:       b.Tags,
		})
	}
	return bullets, nil
}
