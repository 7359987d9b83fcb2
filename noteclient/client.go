// Package noteclient is the Go client for the note-enhancement service: it
// submits notes, polls processing status on an estimate-derived budget, and
// drives the cloud-storage connection flow.
package noteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/embelhq/embel/notes"
)

// Client talks to one service instance as one user.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client

	// bridge connect pacing, zero means the defaults in driveconn.go
	connectInterval time.Duration
	connectAttempts int
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpc = c }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &envelope)
		if envelope.Error == "" {
			envelope.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: envelope.Error}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

// CreateTextNote submits text for enhancement and returns the pending note.
func (c *Client) CreateTextNote(ctx context.Context, text string, settings notes.Settings) (*notes.Note, error) {
	var n notes.Note
	err := c.doJSON(ctx, http.MethodPost, "/api/notes", map[string]any{
		"text": text, "settings": settings,
	}, &n)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ImageFile is one image to submit.
type ImageFile struct {
	Name string
	Data []byte
}

// CreateImageNote submits 1..5 images as one note. Two or more images are
// processed as a joint batch server-side.
func (c *Client) CreateImageNote(ctx context.Context, files []ImageFile, settings notes.Settings) (*notes.Note, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	if err := mw.WriteField("settings", string(settingsJSON)); err != nil {
		return nil, err
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", filepath.Base(f.Name))
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var n notes.Note
	if err := c.do(ctx, http.MethodPost, "/api/notes", mw.FormDataContentType(), &buf, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNote fetches the current state of a note.
func (c *Client) GetNote(ctx context.Context, noteID string) (*notes.Note, error) {
	var n notes.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+noteID, "", nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, noteID string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+noteID, "", nil, nil)
}

// SuggestTopics previews focus topics for unsubmitted text.
func (c *Client) SuggestTopics(ctx context.Context, text string) ([]string, error) {
	var out struct {
		Topics []string `json:"topics"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/topics/preview", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return out.Topics, nil
}

// DownloadArtifact fetches an export artifact, generating it server-side on
// first request.
func (c *Client) DownloadArtifact(ctx context.Context, noteID string, format notes.Format) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/notes/%s/export/%s", c.baseURL, noteID, format), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return data, nil
}
