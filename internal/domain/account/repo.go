package account

import (
	"context"

	"golang.org/x/oauth2"
)

type Repository interface {
	// Upsert creates the profile or refreshes email and display name.
	Upsert(ctx context.Context, p *Profile) error
	Get(ctx context.Context, uid string) (*Profile, error)

	// Token returns the stored Google token, or nil when none is stored.
	Token(ctx context.Context, uid string) (*oauth2.Token, error)
	SaveToken(ctx context.Context, uid string, tok *oauth2.Token) error
	ClearToken(ctx context.Context, uid string) error
}
