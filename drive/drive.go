package drive

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/embelhq/embel/export"
	"github.com/embelhq/embel/notes"
)

// Config points the bridge at the storage provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	// ContentURL is the upload API root.
	ContentURL string
	// Folder is the remote directory artifacts land in.
	Folder string
}

// Service is the drive bridge.
type Service struct {
	conf    *oauth2.Config
	content string
	folder  string
	tokens  *tokenStore
	gen     *export.Generator
	httpc   *http.Client
	logger  *slog.Logger

	mu     sync.Mutex
	states map[string]pendingState // state token -> issuing user
}

type pendingState struct {
	userID  string
	expires time.Time
}

func NewService(db *sql.DB, cfg Config, gen *export.Generator, logger *slog.Logger) *Service {
	return &Service{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
		},
		content: strings.TrimRight(cfg.ContentURL, "/"),
		folder:  cfg.Folder,
		tokens:  &tokenStore{db: db},
		gen:     gen,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
		states:  make(map[string]pendingState),
	}
}

// AuthURL returns the provider consent URL for the user. The state token is
// held server-side and consumed exactly once by the callback.
func (s *Service) AuthURL(userID string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("state token: %w", err)
	}
	state := hex.EncodeToString(buf)

	s.mu.Lock()
	for k, p := range s.states {
		if time.Now().After(p.expires) {
			delete(s.states, k)
		}
	}
	s.states[state] = pendingState{userID: userID, expires: time.Now().Add(10 * time.Minute)}
	s.mu.Unlock()

	// offline access so the provider issues a refresh token
	return s.conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// HandleCallback exchanges the authorization code and stores the token for
// the user the state was issued to.
func (s *Service) HandleCallback(ctx context.Context, state, code string) error {
	s.mu.Lock()
	p, ok := s.states[state]
	delete(s.states, state)
	s.mu.Unlock()
	if !ok || time.Now().After(p.expires) {
		return fmt.Errorf("unknown or expired state")
	}

	tok, err := s.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("code exchange: %w", err)
	}
	if err := s.tokens.save(ctx, p.userID, "", tok); err != nil {
		return err
	}
	s.logger.Info("drive connected", "user_id", p.userID)
	return nil
}

// Status reports whether the user has a working drive connection.
type Status struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account,omitempty"`
}

func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	_, email, err := s.tokens.load(ctx, userID)
	if err == ErrNotConnected {
		return Status{Connected: false}, nil
	}
	if err != nil {
		return Status{}, err
	}
	return Status{Connected: true, Account: email}, nil
}

// Disconnect drops the stored credential.
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	return s.tokens.delete(ctx, userID)
}

// Upload pushes a note's artifact to the user's drive, generating the
// artifact first when it does not exist yet. An upload rejected with 401
// refreshes the token and retries exactly once.
func (s *Service) Upload(ctx context.Context, userID, noteID string, format notes.Format) (string, error) {
	tok, _, err := s.tokens.load(ctx, userID)
	if err != nil {
		return "", err
	}

	location, err := s.gen.Generate(ctx, userID, noteID, format)
	if err != nil {
		return "", fmt.Errorf("prepare artifact: %w", err)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}

	remotePath := path.Join("/", s.folder, noteID+"."+string(format))

	tok, err = s.freshToken(ctx, userID, tok, false)
	if err != nil {
		return "", err
	}
	status, err := s.put(ctx, tok, remotePath, data)
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized {
		tok, err = s.freshToken(ctx, userID, tok, true)
		if err != nil {
			return "", err
		}
		status, err = s.put(ctx, tok, remotePath, data)
		if err != nil {
			return "", err
		}
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("drive upload failed with status %d", status)
	}

	s.logger.Info("artifact uploaded", "note_id", noteID, "format", format, "path", remotePath)
	return remotePath, nil
}

// freshToken returns a valid access token, refreshing when expired or when
// force is set, and persists any rotation.
func (s *Service) freshToken(ctx context.Context, userID string, tok *oauth2.Token, force bool) (*oauth2.Token, error) {
	if force {
		tok = &oauth2.Token{RefreshToken: tok.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
	}
	renewed, err := s.conf.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh: %w", err)
	}
	if renewed.AccessToken != tok.AccessToken {
		if err := s.tokens.save(ctx, userID, "", renewed); err != nil {
			return nil, err
		}
	}
	return renewed, nil
}

// put performs one upload call. Provider errors that are not auth failures
// come back as the status code so the caller can decide.
func (s *Service) put(ctx context.Context, tok *oauth2.Token, remotePath string, data []byte) (int, error) {
	arg, _ := json.Marshal(map[string]any{"path": remotePath, "mode": "overwrite"})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.content+"/files/upload", strings.NewReader(string(data)))
	if err != nil {
		return 0, fmt.Errorf("build upload: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Upload-Arg", string(arg))

	resp, err := s.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("drive unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, nil
}
