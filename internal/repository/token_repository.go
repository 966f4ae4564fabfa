package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"

	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
)

// TokenRepository persists the single OAuth credential that proves the
// service may act on the user's calendar.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository constructs the repository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Has reports whether a credential is stored. A row that cannot be read
// counts as absent.
func (r *TokenRepository) Has(ctx context.Context) bool {
	var count int
	const query = `SELECT COUNT(*) FROM oauth_tokens WHERE id = 1`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return false
	}
	return count > 0
}

// Load returns the stored credential. Absence and deserialization failure
// both surface as ErrUnauthenticated: either way the gate is closed.
func (r *TokenRepository) Load(ctx context.Context) (*oauth2.Token, error) {
	var raw []byte
	const query = `SELECT token FROM oauth_tokens WHERE id = 1`
	if err := r.db.GetContext(ctx, &raw, query); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthenticated.Code, appErrors.ErrUnauthenticated.Status, "stored credential is unreadable")
	}
	return &token, nil
}

// Save stores the credential, replacing any previous one.
func (r *TokenRepository) Save(ctx context.Context, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	const query = `INSERT INTO oauth_tokens (id, token, updated_at) VALUES (1, ?, ?)
ON CONFLICT (id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear deletes the stored credential.
func (r *TokenRepository) Clear(ctx context.Context) error {
	const query = `DELETE FROM oauth_tokens WHERE id = 1`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
