package account

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/platform/auth"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "account").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Me upserts the caller's profile from the verified token claims.
func (s *Service) Me(ctx context.Context, id auth.Identity) (*Profile, error) {
	p := &Profile{
		UID:         id.UID,
		Email:       strings.ToLower(id.Email),
		DisplayName: strings.TrimSpace(id.Name),
		UpdatedAt:   s.now(),
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, uid string) (*Profile, error) {
	return s.repo.Get(ctx, uid)
}
