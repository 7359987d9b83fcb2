// Package openai implements the enhance engine contracts over the OpenAI
// chat completions API with vision inputs.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/embelhq/embel/enhance"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"
)

// Engine talks to the chat completions endpoint. The zero value is not
// usable; construct with New.
type Engine struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

// Option customises the engine.
type Option func(*Engine)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(e *Engine) { e.model = model }
}

// WithBaseURL points the engine at a different API root, used in tests.
func WithBaseURL(url string) Option {
	return func(e *Engine) { e.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.httpc = c }
}

func New(apiKey string, opts ...Option) *Engine {
	e := &Engine{
		apiKey:  strings.TrimSpace(apiKey),
		model:   defaultModel,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 120 * time.Second},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Name() string { return "openai" }

// chat message content parts
type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imagePart struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// complete sends one chat request and returns the first choice's text.
func (e *Engine) complete(ctx context.Context, temperature float32, msgs []message) (string, error) {
	if e.apiKey == "" {
		return "", fmt.Errorf("%w: openai api key is empty", enhance.ErrUnavailable)
	}
	payload, err := json.Marshal(chatRequest{Model: e.model, Messages: msgs, Temperature: temperature})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", enhance.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", enhance.ErrUnavailable, err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: openai %d: %s", enhance.ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: bad response JSON: %v", enhance.ErrBadOutput, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openai: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", enhance.ErrBadOutput)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (e *Engine) Enhance(ctx context.Context, text string, d enhance.Directives) (string, error) {
	return e.complete(ctx, 0.4, []message{
		{Role: "system", Content: enhance.EnhanceSystemPrompt},
		{Role: "user", Content: enhance.BuildEnhancePrompt(text, d)},
	})
}

func (e *Engine) CorrectOCR(ctx context.Context, text string) (string, error) {
	return e.complete(ctx, 0, []message{
		{Role: "system", Content: enhance.CorrectOCRPrompt},
		{Role: "user", Content: text},
	})
}

func (e *Engine) SuggestTopics(ctx context.Context, text string, max int) ([]string, error) {
	out, err := e.complete(ctx, 0, []message{
		{Role: "system", Content: enhance.TopicsSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("List at most %d topics.\n\nNOTES:\n%s", max, text)},
	})
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
	out, err := e.complete(ctx, 0.3, []message{
		{Role: "system", Content: enhance.FlashcardsSystemPrompt},
		{Role: "user", Content: enhance.BuildFlashcardsPrompt(text, topics, count)},
	})
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
	out, err := e.complete(ctx, 0, []message{
		{Role: "system", Content: enhance.LaTeXSystemPrompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		return "", err
	}
	return enhance.StripFences(out), nil
}

// Extract transcribes up to five images. The whole batch goes out as one
// request so the model sees page order.
func (e *Engine) Extract(ctx context.Context, images []enhance.Image) (string, error) {
	if len(images) == 0 {
		return "", fmt.Errorf("%w: no images", enhance.ErrBadOutput)
	}
	parts := make([]any, 0, len(images)+1)
	parts = append(parts, textPart{Type: "text", Text: fmt.Sprintf("Transcribe these %d page(s).", len(images))})
	for _, img := range images {
		var p imagePart
		p.Type = "image_url"
		p.ImageURL.URL = "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
		parts = append(parts, p)
	}
	return e.complete(ctx, 0, []message{
		{Role: "system", Content: enhance.ExtractSystemPrompt},
		{Role: "user", Content: parts},
	})
}
