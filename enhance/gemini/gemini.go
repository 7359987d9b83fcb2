// Package gemini implements the enhance engine contracts over the Google
// generative AI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/embelhq/embel/enhance"
)

const defaultModel = "gemini-1.5-pro"

// Engine creates a fresh SDK client per call; the SDK client is cheap and
// holding one across requests pins a connection that idles out anyway.
type Engine struct {
	apiKey string
	model  string
}

func New(apiKey, model string) *Engine {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Engine{apiKey: strings.TrimSpace(apiKey), model: strings.TrimSpace(model)}
}

func (e *Engine) Name() string { return "gemini" }

// generate sends one request with transient-failure retries and returns the
// first text part.
func (e *Engine) generate(ctx context.Context, system string, jsonOut bool, parts ...genai.Part) (string, error) {
	if e.apiKey == "" {
		return "", fmt.Errorf("%w: gemini api key is empty", enhance.ErrUnavailable)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", enhance.ErrUnavailable, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model)
	cfg := genai.GenerationConfig{Temperature: ptrFloat32(0.2)}
	if jsonOut {
		cfg.Temperature = ptrFloat32(0)
		cfg.ResponseMIMEType = "application/json"
	}
	m.GenerationConfig = cfg
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		txt := firstText(resp)
		if strings.TrimSpace(txt) == "" {
			return "", fmt.Errorf("%w: empty gemini response", enhance.ErrBadOutput)
		}
		return strings.TrimSpace(txt), nil
	}
	return "", fmt.Errorf("%w: %v", enhance.ErrUnavailable, lastErr)
}

func (e *Engine) Enhance(ctx context.Context, text string, d enhance.Directives) (string, error) {
	return e.generate(ctx, enhance.EnhanceSystemPrompt, false,
		genai.Text(enhance.BuildEnhancePrompt(text, d)))
}

func (e *Engine) CorrectOCR(ctx context.Context, text string) (string, error) {
	return e.generate(ctx, enhance.CorrectOCRPrompt, false, genai.Text(text))
}

func (e *Engine) SuggestTopics(ctx context.Context, text string, max int) ([]string, error) {
	out, err := e.generate(ctx, enhance.TopicsSystemPrompt, true,
		genai.Text(fmt.Sprintf("List at most %d topics.\n\nNOTES:\n%s", max, text)))
	if err != nil {
		return nil, err
	}
	var topics []string
	if err := json.Unmarshal([]byte(enhance.StripFences(out)), &topics); err != nil {
		return nil, fmt.Errorf("%w: topics not a JSON array: %v", enhance.ErrBadOutput, err)
	}
	if len(topics) > max {
		topics = topics[:max]
	}
	return topics, nil
}

func (e *Engine) GenerateFlashcards(ctx context.Context, text string, topics []string, count int) ([]enhance.Card, error) {
	out, err := e.generate(ctx, enhance.FlashcardsSystemPrompt, true,
		genai.Text(enhance.BuildFlashcardsPrompt(text, topics, count)))
	if err != nil {
		return nil, err
	}
	var cards []enhance.Card
	if err := json.Unmarshal([]byte(enhance.StripFences(out)), &cards); err != nil {
		return nil, fmt.Errorf("%w: flashcards not a JSON array: %v", enhance.ErrBadOutput, err)
	}
	return cards, nil
}

func (e *Engine) ToLaTeX(ctx context.Context, markdown, style string) (string, error) {
	user := markdown
	if style != "" {
		user = "Style preference: " + style + "\n\n" + markdown
	}
	out, err := e.generate(ctx, enhance.LaTeXSystemPrompt, false, genai.Text(user))
	if err != nil {
		return "", err
	}
	return enhance.StripFences(out), nil
}

// Extract transcribes up to five images in a single joint request.
func (e *Engine) Extract(ctx context.Context, images []enhance.Image) (string, error) {
	if len(images) == 0 {
		return "", fmt.Errorf("%w: no images", enhance.ErrBadOutput)
	}
	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(fmt.Sprintf("Transcribe these %d page(s).", len(images))))
	for _, img := range images {
		parts = append(parts, &genai.Blob{MIMEType: img.MIME, Data: img.Data})
	}
	return e.generate(ctx, enhance.ExtractSystemPrompt, false, parts...)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
