// Package webhook delivers JSON payloads to outbound automation endpoints
// with optional HMAC-SHA256 signing and keeps a bounded log of attempts.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SignatureHeader = "X-Zenda-Signature"
	EventHeader     = "X-Zenda-Event"
	TimestampHeader = "X-Zenda-Timestamp"

	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Delivery describes one outbound POST.
type Delivery struct {
	UserID    string
	EventType string
	URL       string
	Secret    string
	Payload   interface{}
}

// DeliveryAttempt records the outcome of a single POST. There are no retries,
// so every delivery produces exactly one attempt.
type DeliveryAttempt struct {
	ID           string        `json:"id"`
	UserID       string        `json:"-"`
	EventType    string        `json:"eventType"`
	Host         string        `json:"host"`
	Signature    string        `json:"signature,omitempty"`
	StatusCode   int           `json:"statusCode"`
	ResponseBody string        `json:"responseBody,omitempty"`
	Duration     time.Duration `json:"durationNs"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// OK reports whether the endpoint answered 2xx.
func (a *DeliveryAttempt) OK() bool {
	return a.Status == StatusSuccess
}

// SignPayload computes an HMAC-SHA256 signature of the payload using the given secret,
// returning the hex-encoded result.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature returns true when the hex-encoded signature matches the HMAC-SHA256
// of payload under the given secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256=")))
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithHTTPClient overrides the default HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *Sender) { s.httpClient = c }
}

// Sender POSTs deliveries and records each attempt in its log.
type Sender struct {
	httpClient *http.Client
	log        DeliveryLog
	now        func() time.Time
}

// NewSender creates a Sender writing attempts to log.
func NewSender(log DeliveryLog, opts ...SenderOption) *Sender {
	s := &Sender{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Log returns the delivery log.
func (s *Sender) Log() DeliveryLog {
	return s.log
}

// Send marshals d.Payload, signs it when d.Secret is set and POSTs it.
func (s *Sender) Send(ctx context.Context, d Delivery) *DeliveryAttempt {
	now := s.now()
	attempt := &DeliveryAttempt{
		ID:        uuid.New().String(),
		UserID:    d.UserID,
		EventType: d.EventType,
		Status:    StatusFailed,
		CreatedAt: now,
	}
	if u, err := url.Parse(d.URL); err == nil {
		attempt.Host = u.Host
	}
	defer func() { s.log.Record(attempt) }()

	if err := ValidateURL(d.URL); err != nil {
		attempt.Error = err.Error()
		return attempt
	}

	payload, err := json.Marshal(d.Payload)
	if err != nil {
		attempt.Error = fmt.Sprintf("marshal payload: %v", err)
		return attempt
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(payload))
	if err != nil {
		attempt.Error = err.Error()
		return attempt
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, d.EventType)
	req.Header.Set(TimestampHeader, now.UTC().Format(time.RFC3339))
	if d.Secret != "" {
		attempt.Signature = SignPayload(payload, d.Secret)
		req.Header.Set(SignatureHeader, "sha256="+attempt.Signature)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	attempt.Duration = time.Since(start)
	if err != nil {
		attempt.Error = err.Error()
		return attempt
	}
	defer resp.Body.Close()

	attempt.StatusCode = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	attempt.ResponseBody = string(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		attempt.Status = StatusSuccess
	} else {
		attempt.Error = fmt.Sprintf("non-2xx response: %d", resp.StatusCode)
	}
	return attempt
}
