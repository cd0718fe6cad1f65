package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

const (
	stateAudience = "zenda-calendar-connect"
	stateTTL      = 10 * time.Minute
)

var ErrInvalidState = errors.New("invalid oauth state")

// NewOAuthConfig builds the Google OAuth client configuration for the
// calendar events scope.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{gcal.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
}

// OAuth runs the connect flow. The state parameter is a short-lived HS256
// token naming the uid that started the flow.
type OAuth struct {
	config      *oauth2.Config
	stateSecret []byte
	store       TokenStore
	now         func() time.Time
}

func NewOAuth(cfg *oauth2.Config, stateSecret string, store TokenStore) *OAuth {
	return &OAuth{config: cfg, stateSecret: []byte(stateSecret), store: store, now: time.Now}
}

// AuthURL returns the Google consent URL for uid.
func (o *OAuth) AuthURL(uid string) (string, error) {
	now := o.now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.stateSecret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// VerifyState returns the uid carried by a state token.
func (o *OAuth) VerifyState(state string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(o.now),
	)
	var claims jwt.RegisteredClaims
	if _, err := parser.ParseWithClaims(state, &claims, func(*jwt.Token) (interface{}, error) {
		return o.stateSecret, nil
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidState
	}
	return claims.Subject, nil
}

// Exchange verifies state, trades code for a token and stores it. It
// returns the uid the token was stored for.
func (o *OAuth) Exchange(ctx context.Context, code, state string) (string, error) {
	uid, err := o.VerifyState(state)
	if err != nil {
		return "", err
	}
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return uid, fmt.Errorf("exchange code: %w", err)
	}
	if err := o.store.SaveToken(ctx, uid, tok); err != nil {
		return uid, err
	}
	return uid, nil
}

// Disconnect forgets the stored credential.
func (o *OAuth) Disconnect(ctx context.Context, uid string) error {
	return o.store.ClearToken(ctx, uid)
}
