// Package llm hides the language model vendors behind a single blocking
// request/response call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

var ErrEmptyResponse = errors.New("llm returned an empty response")

// Request is one prompt. Name identifies the flow for logging and for the
// mock provider; it is never sent to the vendor.
type Request struct {
	Name            string
	System          string
	Prompt          string
	Temperature     float32
	MaxOutputTokens int32
	// JSON asks the vendor for a JSON object response.
	JSON bool
}

// Provider generates a completion for a request.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Error wraps a vendor failure so callers can tell upstream problems from
// their own.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Config struct {
	Provider     string
	Model        string
	GCPProject   string
	GCPLocation  string
	OpenAIAPIKey string
	// MockResponses seeds the mock provider, keyed by Request.Name.
	MockResponses map[string]string
}

// New builds the configured provider.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderVertex:
		return NewVertex(ctx, cfg.GCPProject, cfg.GCPLocation, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model), nil
	case ProviderMock, "":
		return NewMock(cfg.MockResponses), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// ExtractJSON trims whitespace and a surrounding markdown code fence, which
// some models add even when asked for raw JSON.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
