package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/platform/validation"
	"github.com/zenda/zenda/internal/platform/websocket"
)

type Service struct {
	repo   Repository
	events websocket.EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, events websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		logger: logger.With().Str("component", "patient").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, uid string, form Form) (*Patient, error) {
	form.normalize()
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	now := s.now()
	p := &Patient{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
	form.apply(p)

	if err := s.repo.Create(ctx, uid, p); err != nil {
		return nil, err
	}
	s.publish(ctx, uid, "patient.created", p.ID)
	return p, nil
}

func (s *Service) Get(ctx context.Context, uid, id string) (*Patient, error) {
	return s.repo.Get(ctx, uid, id)
}

func (s *Service) Update(ctx context.Context, uid, id string, form Form) (*Patient, error) {
	form.normalize()
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	form.apply(p)
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, uid, p); err != nil {
		return nil, err
	}
	s.publish(ctx, uid, "patient.updated", p.ID)
	return p, nil
}

// Delete removes the patient and their notes. Sessions keep the
// denormalised patient name and are left in place.
func (s *Service) Delete(ctx context.Context, uid, id string) error {
	if err := s.repo.Delete(ctx, uid, id); err != nil {
		return err
	}
	s.logger.Info().Str("uid", uid).Str("patient_id", id).Msg("patient deleted with notes")
	s.publish(ctx, uid, "patient.deleted", id)
	if s.events != nil {
		_ = s.events.Publish(ctx, websocket.Event{Type: "notes.deleted", Topic: websocket.NotesTopic(uid, id), ID: id})
	}
	return nil
}

func (s *Service) List(ctx context.Context, uid string, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	if f.Status != "" && f.Status != StatusActive && f.Status != StatusInactive {
		return nil, 0, validation.Field("status", "must be one of: "+StatusActive+", "+StatusInactive)
	}
	return s.repo.List(ctx, uid, f, limit, offset)
}

func (s *Service) publish(ctx context.Context, uid, eventType, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, websocket.Event{Type: eventType, Topic: websocket.PatientsTopic(uid), ID: id}); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish failed")
	}
}
