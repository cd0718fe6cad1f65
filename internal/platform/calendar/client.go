// Package calendar mirrors sessions into the psychologist's Google Calendar
// and runs the OAuth flow that connects it.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const primaryCalendar = "primary"

// ErrNotConnected means the user has no stored Google credential.
var ErrNotConnected = errors.New("calendar not connected")

// TokenStore persists the per-user Google token.
type TokenStore interface {
	Token(ctx context.Context, uid string) (*oauth2.Token, error)
	SaveToken(ctx context.Context, uid string, tok *oauth2.Token) error
	ClearToken(ctx context.Context, uid string) error
}

// Event is a provider-independent calendar entry.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string
}

func (e Event) toAPI() *gcal.Event {
	ev := &gcal.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Start:       &gcal.EventDateTime{DateTime: e.Start.Format(time.RFC3339), TimeZone: e.TimeZone},
		End:         &gcal.EventDateTime{DateTime: e.End.Format(time.RFC3339), TimeZone: e.TimeZone},
	}
	for _, email := range e.Attendees {
		if email != "" {
			ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{Email: email})
		}
	}
	return ev
}

// Client talks to the Calendar API on behalf of a user.
type Client struct {
	oauth  *oauth2.Config
	store  TokenStore
	opts   []option.ClientOption
	logger zerolog.Logger
}

// NewClient creates a Client. Extra options are appended to every service,
// which lets tests point the client at a fake endpoint.
func NewClient(cfg *oauth2.Config, store TokenStore, logger zerolog.Logger, opts ...option.ClientOption) *Client {
	return &Client{
		oauth:  cfg,
		store:  store,
		opts:   opts,
		logger: logger.With().Str("component", "calendar").Logger(),
	}
}

func (c *Client) service(ctx context.Context, uid string) (*gcal.Service, error) {
	tok, err := c.store.Token(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if tok == nil {
		return nil, ErrNotConnected
	}

	ts := &persistingTokenSource{
		base: c.oauth.TokenSource(ctx, tok),
		last: tok.AccessToken,
		save: func(t *oauth2.Token) error {
			return c.store.SaveToken(context.WithoutCancel(ctx), uid, t)
		},
		logger: c.logger,
	}

	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

// Insert creates ev in the primary calendar and returns its id.
func (c *Client) Insert(ctx context.Context, uid string, ev Event) (string, error) {
	svc, err := c.service(ctx, uid)
	if err != nil {
		return "", err
	}
	created, err := svc.Events.Insert(primaryCalendar, ev.toAPI()).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

func (c *Client) Update(ctx context.Context, uid, eventID string, ev Event) error {
	svc, err := c.service(ctx, uid)
	if err != nil {
		return err
	}
	if _, err := svc.Events.Update(primaryCalendar, eventID, ev.toAPI()).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event. An event that is already gone counts as deleted.
func (c *Client) Delete(ctx context.Context, uid, eventID string) error {
	svc, err := c.service(ctx, uid)
	if err != nil {
		return err
	}
	err = svc.Events.Delete(primaryCalendar, eventID).Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// persistingTokenSource saves refreshed tokens back to the store.
type persistingTokenSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	last   string
	save   func(*oauth2.Token) error
	logger zerolog.Logger
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := p.save(tok); err != nil {
			p.logger.Warn().Err(err).Msg("persist refreshed token")
		}
	}
	return tok, nil
}
