package noteclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/embelhq/embel/notes"
	"github.com/embelhq/embel/pollwait"
)

// Bridge connect polling. After the browser is handed the authorization
// URL, the client has no callback of its own; it watches the server-side
// connection status until the OAuth round trip lands.
const (
	connectAttempts = 30
	connectInterval = 2 * time.Second
)

// ErrConnectTimeout is returned when the user does not finish provider
// authorization within the connect window.
var ErrConnectTimeout = errors.New("cloud drive authorization was not completed in time")

// ErrNotConnected is the client-side view of the server's not-connected
// answer; UploadWithReconnect reacts to it by running the connect flow.
var ErrNotConnected = errors.New("cloud drive is not connected")

// DriveStatus mirrors the server's connection report.
type DriveStatus struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account"`
}

// DriveStatus fetches the current cloud-drive connection state.
func (c *Client) DriveStatus(ctx context.Context) (*DriveStatus, error) {
	var st DriveStatus
	if err := c.do(ctx, http.MethodGet, "/api/drive/status", "", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// StartDriveConnect asks the server for a provider authorization URL. The
// caller opens it in a browser; the provider redirects back to the server,
// not to us, so follow with WaitForDriveConnection.
func (c *Client) StartDriveConnect(ctx context.Context) (string, error) {
	var out struct {
		AuthURL string `json:"auth_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/drive/connect", "", nil, &out); err != nil {
		return "", err
	}
	if out.AuthURL == "" {
		return "", errors.New("server returned no authorization url")
	}
	return out.AuthURL, nil
}

// WaitForDriveConnection polls the connection status until the OAuth
// callback has landed, for up to 30 attempts at 2s apart. Exhaustion
// returns ErrConnectTimeout.
func (c *Client) WaitForDriveConnection(ctx context.Context) (*DriveStatus, error) {
	interval, attempts := c.connectInterval, c.connectAttempts
	if interval <= 0 {
		interval = connectInterval
	}
	if attempts <= 0 {
		attempts = connectAttempts
	}

	var connected *DriveStatus
	err := pollwait.UntilAttempts(ctx, interval, attempts, func(ctx context.Context) (bool, error) {
		st, err := c.DriveStatus(ctx)
		if err != nil {
			// the server may restart mid-flow; keep trying until the
			// attempt budget runs out
			return false, nil
		}
		if st.Connected {
			connected = st
			return true, nil
		}
		return false, nil
	})
	if errors.Is(err, pollwait.ErrTimeout) {
		return nil, ErrConnectTimeout
	}
	if err != nil {
		return nil, err
	}
	return connected, nil
}

// DisconnectDrive revokes the stored connection.
func (c *Client) DisconnectDrive(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/drive", "", nil, nil)
}

// UploadToDrive pushes a note artifact to the connected drive and returns
// the remote path. The server generates the artifact first if needed.
func (c *Client) UploadToDrive(ctx context.Context, noteID string, format notes.Format) (string, error) {
	var out struct {
		Path string `json:"path"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/drive/upload", map[string]string{
		"note_id": noteID,
		"format":  string(format),
	}, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict &&
			strings.Contains(apiErr.Message, "not connected") {
			return "", fmt.Errorf("upload %s as %s: %w", noteID, format, ErrNotConnected)
		}
		return "", fmt.Errorf("upload %s as %s: %w", noteID, format, err)
	}
	return out.Path, nil
}

// UploadWithReconnect uploads an artifact; when the drive turns out to be
// disconnected it runs the connect flow once — handing the authorization URL
// to openURL — and retries the upload exactly once.
func (c *Client) UploadWithReconnect(ctx context.Context, noteID string, format notes.Format, openURL func(string) error) (string, error) {
	path, err := c.UploadToDrive(ctx, noteID, format)
	if err == nil || !errors.Is(err, ErrNotConnected) {
		return path, err
	}

	authURL, err := c.StartDriveConnect(ctx)
	if err != nil {
		return "", err
	}
	if openURL != nil {
		if err := openURL(authURL); err != nil {
			return "", err
		}
	}
	if _, err := c.WaitForDriveConnection(ctx); err != nil {
		return "", err
	}
	return c.UploadToDrive(ctx, noteID, format)
}
