package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/oauth2"

	"github.com/zenda/zenda/internal/platform/docstore"
)

type tokenDoc struct {
	AccessToken  string    `firestore:"accessToken"`
	TokenType    string    `firestore:"tokenType"`
	RefreshToken string    `firestore:"refreshToken"`
	Expiry       time.Time `firestore:"expiry"`
}

type userDoc struct {
	Email       string    `firestore:"email"`
	DisplayName string    `firestore:"displayName"`
	GoogleToken *tokenDoc `firestore:"googleToken"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

type repoFirestore struct{ client *firestore.Client }

func NewRepoFirestore(client *firestore.Client) Repository { return &repoFirestore{client: client} }

func (r *repoFirestore) load(ctx context.Context, uid string) (*userDoc, error) {
	snap, err := docstore.User(r.client, uid).Get(ctx)
	if docstore.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", uid, err)
	}
	return &d, nil
}

// Upsert runs in a transaction so createdAt is only written once.
func (r *repoFirestore) Upsert(ctx context.Context, p *Profile) error {
	ref := docstore.User(r.client, p.UID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && !docstore.IsNotFound(err) {
			return fmt.Errorf("get user: %w", err)
		}

		var d userDoc
		if snap != nil && snap.Exists() {
			if err := snap.DataTo(&d); err != nil {
				return fmt.Errorf("decode user %s: %w", p.UID, err)
			}
		} else {
			d.CreatedAt = p.UpdatedAt
		}

		d.Email = p.Email
		if p.DisplayName != "" {
			d.DisplayName = p.DisplayName
		}
		d.UpdatedAt = p.UpdatedAt

		p.DisplayName = d.DisplayName
		p.CreatedAt = d.CreatedAt
		p.CalendarConnected = d.GoogleToken != nil
		return tx.Set(ref, d)
	})
}

func (r *repoFirestore) Get(ctx context.Context, uid string) (*Profile, error) {
	d, err := r.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &Profile{
		UID: uid, Email: d.Email, DisplayName: d.DisplayName,
		CalendarConnected: d.GoogleToken != nil, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

func (r *repoFirestore) Token(ctx context.Context, uid string) (*oauth2.Token, error) {
	d, err := r.load(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.GoogleToken == nil {
		return nil, nil
	}
	return &oauth2.Token{
		AccessToken:  d.GoogleToken.AccessToken,
		TokenType:    d.GoogleToken.TokenType,
		RefreshToken: d.GoogleToken.RefreshToken,
		Expiry:       d.GoogleToken.Expiry,
	}, nil
}

func (r *repoFirestore) SaveToken(ctx context.Context, uid string, tok *oauth2.Token) error {
	doc := map[string]interface{}{
		"googleToken": tokenDoc{
			AccessToken:  tok.AccessToken,
			TokenType:    tok.TokenType,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
		},
		"updatedAt": time.Now().UTC(),
	}
	if _, err := docstore.User(r.client, uid).Set(ctx, doc, firestore.MergeAll); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *repoFirestore) ClearToken(ctx context.Context, uid string) error {
	_, err := docstore.User(r.client, uid).Update(ctx, []firestore.Update{
		{Path: "googleToken", Value: firestore.Delete},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil && !docstore.IsNotFound(err) {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
