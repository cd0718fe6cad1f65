package note

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/domain/patient"
	"github.com/zenda/zenda/internal/platform/validation"
	"github.com/zenda/zenda/internal/platform/websocket"
)

// PatientLookup resolves the owning patient. Notes can only be attached to
// an existing patient of the same psychologist.
type PatientLookup interface {
	Get(ctx context.Context, uid, id string) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientLookup
	events   websocket.EventPublisher
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, patients PatientLookup, events websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		events:   events,
		logger:   logger.With().Str("component", "note").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, uid, patientID string, form Form) (*Note, error) {
	form.normalize()
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	if _, err := s.patients.Get(ctx, uid, patientID); err != nil {
		return nil, err
	}

	now := s.now()
	n := &Note{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Title:     form.Title,
		Type:      form.Type,
		Content:   form.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, uid, n); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("uid", uid).Str("note_id", n.ID).Int("content_len", len(n.Content)).Msg("note created")
	s.publish(ctx, uid, patientID, "note.created", n.ID)
	return n, nil
}

func (s *Service) Get(ctx context.Context, uid, patientID, id string) (*Note, error) {
	return s.repo.Get(ctx, uid, patientID, id)
}

func (s *Service) Update(ctx context.Context, uid, patientID, id string, form Form) (*Note, error) {
	form.normalize()
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	n, err := s.repo.Get(ctx, uid, patientID, id)
	if err != nil {
		return nil, err
	}
	n.Title = form.Title
	n.Type = form.Type
	n.Content = form.Content
	n.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, uid, n); err != nil {
		return nil, err
	}
	s.publish(ctx, uid, patientID, "note.updated", n.ID)
	return n, nil
}

func (s *Service) Delete(ctx context.Context, uid, patientID, id string) error {
	if err := s.repo.Delete(ctx, uid, patientID, id); err != nil {
		return err
	}
	s.publish(ctx, uid, patientID, "note.deleted", id)
	return nil
}

func (s *Service) List(ctx context.Context, uid, patientID string, f ListFilter, limit, offset int) ([]*Note, int, error) {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return nil, 0, validation.Field("to", "must be after from")
	}
	if _, err := s.patients.Get(ctx, uid, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, uid, patientID, f, limit, offset)
}

func (s *Service) publish(ctx context.Context, uid, patientID, eventType, id string) {
	if s.events == nil {
		return
	}
	e := websocket.Event{Type: eventType, Topic: websocket.NotesTopic(uid, patientID), ID: id}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish failed")
	}
}
