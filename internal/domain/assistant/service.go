// Package assistant runs the AI text flows: note reformatting, summaries and
// progress reports. Each flow is one blocking JSON-mode model call whose
// input and output are both schema checked.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/platform/llm"
	"github.com/zenda/zenda/internal/platform/validation"
)

// ErrUpstream marks failures of the model call or of its output. Input
// problems are returned as validation.Errors instead.
var ErrUpstream = errors.New("assistant flow failed")

type Service struct {
	provider llm.Provider
	catalog  *Catalog
	logger   zerolog.Logger
}

func NewService(provider llm.Provider, catalog *Catalog, logger zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		catalog:  catalog,
		logger:   logger.With().Str("component", "assistant").Str("provider", provider.Name()).Logger(),
	}
}

// run renders prompt with in, calls the model and decodes the reply into
// out, which must pass validation. Prompt and reply text are never logged.
func (s *Service) run(ctx context.Context, prompt string, in, out interface{}) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	req, err := s.catalog.Render(prompt, in)
	if err != nil {
		return err
	}

	start := time.Now()
	raw, err := s.provider.Generate(ctx, req)
	log := s.logger.With().Str("flow", prompt).Dur("latency", time.Since(start)).Logger()
	if err != nil {
		log.Warn().Err(err).Msg("model call failed")
		return fmt.Errorf("%w: %s: %w", ErrUpstream, prompt, err)
	}

	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), out); err != nil {
		log.Warn().Int("response_bytes", len(raw)).Msg("model returned invalid JSON")
		return fmt.Errorf("%w: %s: decode response: %w", ErrUpstream, prompt, err)
	}
	if err := validation.Struct(out); err != nil {
		log.Warn().Str("fields", err.Error()).Msg("model response failed validation")
		return fmt.Errorf("%w: %s: response %v", ErrUpstream, prompt, err)
	}
	log.Info().Int("response_bytes", len(raw)).Msg("flow completed")
	return nil
}

func (s *Service) ReformatNote(ctx context.Context, in ReformatInput) (*ReformatOutput, error) {
	if in.Format == FormatDAP {
		var dap DAPNote
		if err := s.run(ctx, PromptReformatDAP, &in, &dap); err != nil {
			return nil, err
		}
		return &ReformatOutput{Format: FormatDAP, DAP: &dap, Content: renderDAP(&dap)}, nil
	}

	var soap SOAPNote
	if err := s.run(ctx, PromptReformatSOAP, &in, &soap); err != nil {
		return nil, err
	}
	return &ReformatOutput{Format: FormatSOAP, SOAP: &soap, Content: renderSOAP(&soap)}, nil
}

func (s *Service) Summarize(ctx context.Context, in SummarizeInput) (*Summary, error) {
	var out Summary
	if err := s.run(ctx, PromptSummarize, &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) ProgressReport(ctx context.Context, in ProgressInput) (*ProgressReport, error) {
	var out ProgressReport
	if err := s.run(ctx, PromptProgressReport, &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
