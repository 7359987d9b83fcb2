package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrNoCompiler means no compiler in the chain could run at all: the
	// local toolchain is absent and the remote service unreachable.
	// Infrastructure, not content.
	ErrNoCompiler = errors.New("no LaTeX compiler available")

	// ErrBadMarkup means a compiler ran and rejected the document. Falling
	// through to another compiler cannot help; the markup itself is wrong.
	ErrBadMarkup = errors.New("document failed to compile")
)

// Compiler turns LaTeX source into PDF bytes.
type Compiler interface {
	Name() string
	Compile(ctx context.Context, texSource string) ([]byte, error)
}

// LocalCompiler shells out to pdflatex. Fast when the host has TeX
// installed, absent on most deployments.
type LocalCompiler struct {
	// Binary defaults to "pdflatex".
	Binary string
	// Timeout bounds one compilation run. Default 30s.
	Timeout time.Duration
}

func (c *LocalCompiler) Name() string { return "pdflatex" }

func (c *LocalCompiler) Compile(ctx context.Context, texSource string) ([]byte, error) {
	binary := c.Binary
	if binary == "" {
		binary = "pdflatex"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("%w: %s not in PATH", ErrNoCompiler, binary)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "embel-tex-*")
	if err != nil {
		return nil, fmt.Errorf("tex workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	texPath := filepath.Join(dir, "note.tex")
	if err := os.WriteFile(texPath, []byte(texSource), 0o600); err != nil {
		return nil, fmt.Errorf("write tex: %w", err)
	}

	// -interaction=nonstopmode keeps pdflatex from waiting on stdin when
	// the markup has problems.
	cmd := exec.CommandContext(ctx, binary,
		"-interaction=nonstopmode", "-halt-on-error", "-output-directory", dir, texPath)
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: pdflatex timed out", ErrNoCompiler)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadMarkup, lastLogLines(string(out), 5))
	}

	pdf, err := os.ReadFile(filepath.Join(dir, "note.pdf"))
	if err != nil {
		return nil, fmt.Errorf("%w: pdflatex produced no output", ErrBadMarkup)
	}
	return pdf, nil
}

func lastLogLines(log string, n int) string {
	lines := strings.Split(strings.TrimSpace(log), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// RemoteCompiler posts the source to a LaTeX compilation service that
// answers with PDF bytes. Line endings are normalized to LF first; the
// service rejects CRLF sources.
type RemoteCompiler struct {
	// URL is the compile endpoint.
	URL string
	// Timeout bounds the round trip. Default 120s; remote queues are slow.
	Timeout time.Duration

	HTTPClient *http.Client
}

func (c *RemoteCompiler) Name() string { return "remote" }

func (c *RemoteCompiler) Compile(ctx context.Context, texSource string) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("%w: remote compiler not configured", ErrNoCompiler)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	src := strings.ReplaceAll(texSource, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-latex")

	httpc := c.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCompiler, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrNoCompiler, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		// A proxy error page served with 200 must not become a "PDF".
		if err := validatePDF(body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoCompiler, err)
		}
		return body, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: remote compiler %d", ErrNoCompiler, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: %s", ErrBadMarkup, lastLogLines(string(body), 5))
	}
}

// Chain tries compilers in order. Infrastructure failures fall through to
// the next compiler; a markup rejection aborts immediately because every
// compiler would reject the same source.
type Chain struct {
	compilers []Compiler
}

func NewChain(compilers ...Compiler) *Chain {
	return &Chain{compilers: compilers}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Compile(ctx context.Context, texSource string) ([]byte, error) {
	var lastInfra error
	for _, compiler := range c.compilers {
		pdf, err := compiler.Compile(ctx, texSource)
		if err == nil {
			return pdf, nil
		}
		if errors.Is(err, ErrBadMarkup) {
			return nil, err
		}
		lastInfra = err
	}
	if lastInfra == nil {
		return nil, ErrNoCompiler
	}
	if !errors.Is(lastInfra, ErrNoCompiler) {
		lastInfra = fmt.Errorf("%w: %v", ErrNoCompiler, lastInfra)
	}
	return nil, lastInfra
}

// validatePDF rejects responses that are not structurally valid PDF, like
// an HTML error page served with status 200.
func validatePDF(pdf []byte) error {
	if _, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("pdf validation: %w", err)
	}
	return nil
}
