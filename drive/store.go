// Package drive connects notes to the user's cloud storage: OAuth2
// authorization, per-user token persistence, and artifact upload. Uploading
// a format that has not been exported yet generates the artifact first.
package drive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Schema is applied by dbopen at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS drive_tokens (
	user_id       TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expiry        TIMESTAMP NOT NULL,
	account_email TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMP NOT NULL
);
`

// ErrNotConnected is returned when a user has no stored drive credential.
var ErrNotConnected = errors.New("drive not connected")

// tokenStore persists one OAuth2 token per user. Tokens live server-side;
// clients only ever see connection status.
type tokenStore struct {
	db *sql.DB
}

func (s *tokenStore) save(ctx context.Context, userID, email string, tok *oauth2.Token) error {
	refresh := tok.RefreshToken
	if refresh == "" {
		// Providers omit the refresh token on renewals; keep the old one.
		if prev, _, err := s.load(ctx, userID); err == nil {
			refresh = prev.RefreshToken
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drive_tokens (user_id, access_token, refresh_token, expiry, account_email, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			account_email = CASE WHEN excluded.account_email != '' THEN excluded.account_email ELSE drive_tokens.account_email END,
			updated_at = excluded.updated_at`,
		userID, tok.AccessToken, refresh, tok.Expiry.UTC(), email, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *tokenStore) load(ctx context.Context, userID string) (*oauth2.Token, string, error) {
	var tok oauth2.Token
	var email string
	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, expiry, account_email
		FROM drive_tokens WHERE user_id = ?`, userID).
		Scan(&tok.AccessToken, &tok.RefreshToken, &tok.Expiry, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotConnected
	}
	if err != nil {
		return nil, "", fmt.Errorf("load token: %w", err)
	}
	return &tok, email, nil
}

func (s *tokenStore) delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drive_tokens WHERE user_id = ?`, userID)
	return err
}
