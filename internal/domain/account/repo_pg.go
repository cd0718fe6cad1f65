package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) Upsert(ctx context.Context, p *Profile) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (uid, email, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = CASE WHEN EXCLUDED.display_name = '' THEN users.display_name ELSE EXCLUDED.display_name END,
			updated_at = EXCLUDED.updated_at
		RETURNING display_name, google_token IS NOT NULL, created_at, updated_at`,
		p.UID, p.Email, p.DisplayName, p.UpdatedAt,
	).Scan(&p.DisplayName, &p.CalendarConnected, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, uid string) (*Profile, error) {
	p := Profile{UID: uid}
	err := r.pool.QueryRow(ctx, `
		SELECT email, display_name, google_token IS NOT NULL, created_at, updated_at
		FROM users WHERE uid = $1`, uid,
	).Scan(&p.Email, &p.DisplayName, &p.CalendarConnected, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &p, nil
}

func (r *repoPG) Token(ctx context.Context, uid string) (*oauth2.Token, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT google_token FROM users WHERE uid = $1`, uid).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && raw == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &tok, nil
}

func (r *repoPG) SaveToken(ctx context.Context, uid string, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (uid, google_token) VALUES ($1, $2)
		ON CONFLICT (uid) DO UPDATE SET google_token = EXCLUDED.google_token, updated_at = NOW()`,
		uid, raw)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *repoPG) ClearToken(ctx context.Context, uid string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE users SET google_token = NULL, updated_at = NOW() WHERE uid = $1`, uid); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
