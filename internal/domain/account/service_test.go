package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/zenda/zenda/internal/platform/auth"
)

// mockRepo mirrors the upsert semantics of the real backends.
type mockRepo struct {
	profiles map[string]*Profile
	tokens   map[string]*oauth2.Token
}

func newMockRepo() *mockRepo {
	return &mockRepo{profiles: map[string]*Profile{}, tokens: map[string]*oauth2.Token{}}
}

func (m *mockRepo) Upsert(_ context.Context, p *Profile) error {
	existing, ok := m.profiles[p.UID]
	if ok {
		p.CreatedAt = existing.CreatedAt
		if p.DisplayName == "" {
			p.DisplayName = existing.DisplayName
		}
	} else {
		p.CreatedAt = p.UpdatedAt
	}
	p.CalendarConnected = m.tokens[p.UID] != nil
	cp := *p
	m.profiles[p.UID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, uid string) (*Profile, error) {
	p, ok := m.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) Token(_ context.Context, uid string) (*oauth2.Token, error) {
	return m.tokens[uid], nil
}

func (m *mockRepo) SaveToken(_ context.Context, uid string, tok *oauth2.Token) error {
	m.tokens[uid] = tok
	return nil
}

func (m *mockRepo) ClearToken(_ context.Context, uid string) error {
	delete(m.tokens, uid)
	return nil
}

func TestService_Me_CreatesThenRefreshes(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }

	p, err := svc.Me(context.Background(), auth.Identity{UID: "u1", Email: "Ana@Example.com", Name: "Ana"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Email != "ana@example.com" || p.DisplayName != "Ana" || !p.CreatedAt.Equal(first) {
		t.Errorf("unexpected profile %+v", p)
	}

	repo.SaveToken(context.Background(), "u1", &oauth2.Token{AccessToken: "at"})
	svc.now = func() time.Time { return first.Add(time.Hour) }

	p, _ = svc.Me(context.Background(), auth.Identity{UID: "u1", Email: "ana@example.com"})
	if p.DisplayName != "Ana" {
		t.Errorf("expected display name to be kept, got %q", p.DisplayName)
	}
	if !p.CreatedAt.Equal(first) || !p.UpdatedAt.After(first) {
		t.Errorf("unexpected timestamps %+v", p)
	}
	if !p.CalendarConnected {
		t.Error("expected calendarConnected once a token is stored")
	}
}

func TestHandler_Me(t *testing.T) {
	h := NewHandler(NewService(newMockRepo(), zerolog.Nop()))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "u1", Email: "a@b.c", EmailVerified: true}))
	rec := httptest.NewRecorder()

	if err := h.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "token") {
		t.Errorf("token material must not be serialised: %s", rec.Body.String())
	}
	var p Profile
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.UID != "u1" {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestHandler_Me_Unauthenticated(t *testing.T) {
	h := NewHandler(NewService(newMockRepo(), zerolog.Nop()))
	e := echo.New()
	rec := httptest.NewRecorder()

	err := h.Me(e.NewContext(httptest.NewRequest(http.MethodGet, "/me", nil), rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
