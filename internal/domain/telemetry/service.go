package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "telemetry").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) RecordClick(ctx context.Context, uid string, form ClickForm) (*Counter, error) {
	if err := form.validate(); err != nil {
		return nil, err
	}
	c, err := s.repo.Increment(ctx, form.Event, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("uid", uid).Str("event", c.Event).Int64("count", c.Count).Msg("click recorded")
	return c, nil
}

func (s *Service) ListClicks(ctx context.Context) ([]*Counter, error) {
	return s.repo.List(ctx)
}
