package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/platform/auth"
	"github.com/zenda/zenda/internal/platform/validation"
	"github.com/zenda/zenda/internal/platform/webhook"
)

func TestFormatSpanishDate(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skip("tzdata not available")
	}
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2025, 3, 3, 9, 0, 0, 0, loc), "lunes, 3 de marzo de 2025, 09:00"},
		{time.Date(2025, 12, 27, 18, 5, 0, 0, loc), "sábado, 27 de diciembre de 2025, 18:05"},
		{time.Date(2024, 1, 3, 0, 30, 0, 0, time.UTC), "miércoles, 3 de enero de 2024, 00:30"},
	}
	for _, tt := range tests {
		if got := FormatSpanishDate(tt.in); got != tt.want {
			t.Errorf("FormatSpanishDate(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func sampleInput(audience string) Input {
	return Input{
		UserID:       "u1",
		PatientName:  "Juan Pérez",
		PatientEmail: "juan@example.com",
		PatientPhone: "+34 600 000 000",
		SessionDate:  time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		Audience:     audience,
	}
}

func TestDispatch_Sent(t *testing.T) {
	var (
		calls int32
		got   Payload
		sig   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		sig = r.Header.Get(webhook.SignatureHeader)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := webhook.NewMemoryLog(10)
	d := NewDispatcher(webhook.NewSender(log), srv.URL, "s3cret", zerolog.Nop())

	res, err := d.Dispatch(context.Background(), sampleInput(AudienceBoth))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSent || !res.OK() {
		t.Fatalf("expected sent, got %+v", res)
	}
	if res.DeliveryID == "" {
		t.Error("expected delivery id")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
	if got.PatientName != "Juan Pérez" || got.PatientEmail != "juan@example.com" {
		t.Errorf("unexpected payload %+v", got)
	}
	if got.SessionDate != "lunes, 3 de marzo de 2025, 09:00" {
		t.Errorf("unexpected sessionDate %q", got.SessionDate)
	}
	if got.RawSessionDate != "2025-03-03T09:00:00Z" {
		t.Errorf("unexpected rawSessionDate %q", got.RawSessionDate)
	}
	if sig == "" {
		t.Error("expected signature header when secret is set")
	}
	if _, total := log.List("u1", 10, 0); total != 1 {
		t.Errorf("expected 1 logged attempt, got %d", total)
	}
}

func TestDispatch_ConfigError(t *testing.T) {
	var calls int32
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("unexpected call")
	})}
	d := NewDispatcher(webhook.NewSender(webhook.NewMemoryLog(10), webhook.WithHTTPClient(client)), "", "", zerolog.Nop())

	for _, audience := range []string{AudiencePatient, AudienceBoth} {
		res, err := d.Dispatch(context.Background(), sampleInput(audience))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != StatusConfigError {
			t.Errorf("%s: expected config_error, got %s", audience, res.Status)
		}
	}
	if calls != 0 {
		t.Errorf("expected zero outbound calls, got %d", calls)
	}
}

func TestDispatch_PsychologistOnly(t *testing.T) {
	d := NewDispatcher(webhook.NewSender(webhook.NewMemoryLog(10)), "", "", zerolog.Nop())
	res, err := d.Dispatch(context.Background(), sampleInput(AudiencePsychologist))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSent {
		t.Errorf("expected sent, got %s", res.Status)
	}
	if res.DeliveryID != "" {
		t.Error("expected no delivery for psychologist-only reminders")
	}
}

func TestDispatch_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewDispatcher(webhook.NewSender(webhook.NewMemoryLog(10)), srv.URL, "", zerolog.Nop())
	res, err := d.Dispatch(context.Background(), sampleInput(AudiencePatient))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
	if !strings.Contains(res.Message, "503") {
		t.Errorf("expected HTTP status in message, got %q", res.Message)
	}
}

func TestDispatch_TransportError(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	d := NewDispatcher(webhook.NewSender(webhook.NewMemoryLog(10), webhook.WithHTTPClient(client)),
		"https://hooks.example.com/reminder", "", zerolog.Nop())

	res, err := d.Dispatch(context.Background(), sampleInput(AudiencePatient))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusFailed {
		t.Errorf("expected failed, got %s", res.Status)
	}
}

func TestDispatch_InvalidAudience(t *testing.T) {
	d := NewDispatcher(webhook.NewSender(webhook.NewMemoryLog(10)), "", "", zerolog.Nop())
	_, err := d.Dispatch(context.Background(), sampleInput("everyone"))
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandler_ListDeliveries(t *testing.T) {
	log := webhook.NewMemoryLog(10)
	log.Record(&webhook.DeliveryAttempt{ID: "a1", UserID: "u1", Status: webhook.StatusSuccess})
	log.Record(&webhook.DeliveryAttempt{ID: "a2", UserID: "u2", Status: webhook.StatusFailed})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reminders/deliveries", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := NewHandler(log).ListDeliveries(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Items []map[string]interface{} `json:"items"`
		Total int                      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 || len(body.Items) != 1 || body.Items[0]["id"] != "a1" {
		t.Errorf("expected only u1's delivery, got %+v", body)
	}
}

func TestHandler_ListDeliveries_Unauthorized(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reminders/deliveries", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	err := NewHandler(webhook.NewMemoryLog(1)).ListDeliveries(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
