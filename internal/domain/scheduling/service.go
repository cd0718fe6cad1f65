package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/domain/patient"
	"github.com/zenda/zenda/internal/domain/reminder"
	"github.com/zenda/zenda/internal/platform/calendar"
	"github.com/zenda/zenda/internal/platform/validation"
	"github.com/zenda/zenda/internal/platform/websocket"
)

// PatientLookup resolves the patient a session refers to.
type PatientLookup interface {
	Get(ctx context.Context, uid, id string) (*patient.Patient, error)
}

// CalendarSyncer mirrors sessions into an external calendar.
type CalendarSyncer interface {
	Insert(ctx context.Context, uid string, ev calendar.Event) (string, error)
	Update(ctx context.Context, uid, eventID string, ev calendar.Event) error
	Delete(ctx context.Context, uid, eventID string) error
}

// ReminderDispatcher sends session reminders.
type ReminderDispatcher interface {
	Dispatch(ctx context.Context, in reminder.Input) (reminder.Result, error)
}

type Option func(*Service)

// WithCalendar enables calendar sync.
func WithCalendar(c CalendarSyncer) Option {
	return func(s *Service) { s.calendar = c }
}

// WithReminders enables reminder dispatch on create.
func WithReminders(r ReminderDispatcher) Option {
	return func(s *Service) { s.reminders = r }
}

// WithScope sets the overlap scope, ScopeCalendar or ScopePatient.
func WithScope(scope string) Option {
	return func(s *Service) { s.scope = scope }
}

// WithLocation sets the zone used for forms without a timeZone.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

type Service struct {
	repo      Repository
	patients  PatientLookup
	calendar  CalendarSyncer
	reminders ReminderDispatcher
	events    websocket.EventPublisher
	scope     string
	loc       *time.Location
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, patients PatientLookup, events websocket.EventPublisher, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		patients: patients,
		events:   events,
		scope:    ScopeCalendar,
		loc:      time.UTC,
		logger:   logger.With().Str("component", "scheduling").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) resolvePatient(ctx context.Context, uid, id string) (*patient.Patient, error) {
	p, err := s.patients.Get(ctx, uid, id)
	if errors.Is(err, patient.ErrNotFound) {
		return nil, validation.Field("patientId", "does not match an existing patient")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	return p, nil
}

// checkOverlap loads the sessions intersecting candidate in the configured
// scope and runs CheckOverlap over them.
func (s *Service) checkOverlap(ctx context.Context, uid string, candidate *Session) error {
	if candidate.Status == StatusCancelled {
		return nil
	}
	patientID := ""
	if s.scope == ScopePatient {
		patientID = candidate.PatientID
	}
	existing, err := s.repo.InRange(ctx, uid, candidate.Date, candidate.EndDate, patientID)
	if err != nil {
		return fmt.Errorf("load sessions for overlap check: %w", err)
	}
	return CheckOverlap(candidate, existing)
}

func (s *Service) fromForm(ctx context.Context, uid string, form *Form, sess *Session) (*patient.Patient, error) {
	form.normalize()
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	start, end, zone, err := form.Interval(s.loc)
	if err != nil {
		return nil, err
	}
	p, err := s.resolvePatient(ctx, uid, form.PatientID)
	if err != nil {
		return nil, err
	}

	form.apply(sess)
	sess.PatientName = p.Name
	sess.Date = start
	sess.EndDate = end
	sess.TimeZone = zone
	sess.Duration = int(end.Sub(start) / time.Minute)
	return p, nil
}

func (s *Service) CreateSession(ctx context.Context, uid string, form Form) (*Result, error) {
	now := s.now()
	sess := &Session{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
	p, err := s.fromForm(ctx, uid, &form, sess)
	if err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, uid, sess); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, uid, sess); err != nil {
		return nil, err
	}

	res := &Result{Session: sess, Warnings: []Warning{}}
	s.syncCalendar(ctx, uid, sess, p, res)
	s.sendReminders(ctx, uid, sess, p, res)

	s.logger.Info().Str("uid", uid).Str("session_id", sess.ID).Int("warnings", len(res.Warnings)).Msg("session created")
	s.publish(ctx, uid, "session.created", sess.ID)
	return res, nil
}

func (s *Service) UpdateSession(ctx context.Context, uid, id string, form Form) (*Result, error) {
	sess, err := s.repo.Get(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	p, err := s.fromForm(ctx, uid, &form, sess)
	if err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, uid, sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, uid, sess); err != nil {
		return nil, err
	}

	res := &Result{Session: sess, Warnings: []Warning{}}
	s.syncCalendar(ctx, uid, sess, p, res)

	s.publish(ctx, uid, "session.updated", sess.ID)
	return res, nil
}

// UpdateStatus sets the status. Any status may follow any other; leaving
// Cancelada re-runs the overlap check.
func (s *Service) UpdateStatus(ctx context.Context, uid, id string, form StatusForm) (*Result, error) {
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	sess, err := s.repo.Get(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	prev := sess.Status
	sess.Status = form.Status
	if prev == StatusCancelled && sess.Status != StatusCancelled {
		if err := s.checkOverlap(ctx, uid, sess); err != nil {
			return nil, err
		}
	}
	sess.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, uid, sess); err != nil {
		return nil, err
	}

	res := &Result{Session: sess, Warnings: []Warning{}}
	if prev != sess.Status {
		var p *patient.Patient
		if s.calendar != nil {
			// A deleted patient only costs the attendee entry.
			p, _ = s.patients.Get(ctx, uid, sess.PatientID)
		}
		s.syncCalendar(ctx, uid, sess, p, res)
	}

	s.logger.Info().Str("uid", uid).Str("session_id", id).Str("from", prev).Str("to", sess.Status).Msg("session status changed")
	s.publish(ctx, uid, "session.updated", sess.ID)
	return res, nil
}

// DeleteSession removes the session and its calendar event. Calendar
// failures come back as warnings.
func (s *Service) DeleteSession(ctx context.Context, uid, id string) ([]Warning, error) {
	sess, err := s.repo.Get(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, uid, id); err != nil {
		return nil, err
	}

	warnings := []Warning{}
	if s.calendar != nil && sess.CalendarEventID != "" {
		if err := s.calendar.Delete(ctx, uid, sess.CalendarEventID); err != nil {
			warnings = append(warnings, s.calendarWarning(uid, sess.ID, err))
		}
	}
	s.publish(ctx, uid, "session.deleted", id)
	return warnings, nil
}

func (s *Service) GetSession(ctx context.Context, uid, id string) (*Session, error) {
	return s.repo.Get(ctx, uid, id)
}

func (s *Service) ListSessions(ctx context.Context, uid string, f ListFilter, limit, offset int) ([]*Session, int, error) {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return nil, 0, validation.Field("to", "must be after from")
	}
	if f.Status != "" && !contains(statuses, f.Status) {
		return nil, 0, validation.Field("status", "is invalid")
	}
	return s.repo.List(ctx, uid, f, limit, offset)
}

// Stats counts the sessions intersecting [from, to). Minutes excludes
// cancelled sessions.
func (s *Service) Stats(ctx context.Context, uid string, from, to time.Time) (*Stats, error) {
	verrs := validation.Errors{}
	if from.IsZero() {
		verrs["from"] = "is required"
	}
	if to.IsZero() {
		verrs["to"] = "is required"
	}
	if len(verrs) > 0 {
		return nil, verrs
	}
	if !from.Before(to) {
		return nil, validation.Field("to", "must be after from")
	}
	sessions, err := s.repo.InRange(ctx, uid, from, to, "")
	if err != nil {
		return nil, err
	}

	st := &Stats{From: from, To: to, ByStatus: map[string]int{}, ByType: map[string]int{}}
	for _, v := range statuses {
		st.ByStatus[v] = 0
	}
	for _, v := range types {
		st.ByType[v] = 0
	}
	for _, sess := range sessions {
		st.Total++
		st.ByStatus[sess.Status]++
		st.ByType[sess.Type]++
		if sess.Status != StatusCancelled {
			st.Minutes += sess.Duration
		}
	}
	return st, nil
}

// SendReminder re-sends a reminder for an existing session.
func (s *Service) SendReminder(ctx context.Context, uid, id string, form ReminderForm) (reminder.Result, error) {
	if err := validation.Struct(form); err != nil {
		return reminder.Result{}, err
	}
	if s.reminders == nil {
		return reminder.Result{Status: reminder.StatusConfigError, Message: "Los recordatorios no están configurados."}, nil
	}
	sess, err := s.repo.Get(ctx, uid, id)
	if err != nil {
		return reminder.Result{}, err
	}
	p, err := s.patients.Get(ctx, uid, sess.PatientID)
	if err != nil && !errors.Is(err, patient.ErrNotFound) {
		return reminder.Result{}, fmt.Errorf("resolve patient: %w", err)
	}
	return s.reminders.Dispatch(ctx, reminderInput(uid, sess, p, form.Audience))
}

func reminderInput(uid string, sess *Session, p *patient.Patient, audience string) reminder.Input {
	in := reminder.Input{
		UserID:      uid,
		PatientName: sess.PatientName,
		SessionDate: sess.Date.In(sess.Location()),
		Audience:    audience,
	}
	if p != nil {
		in.PatientEmail = p.Email
		in.PatientPhone = p.Phone
	}
	return in
}

func (s *Service) sendReminders(ctx context.Context, uid string, sess *Session, p *patient.Patient, res *Result) {
	if s.reminders == nil || sess.Status != StatusConfirmed {
		return
	}
	var audience string
	switch {
	case sess.RemindPatient && sess.RemindPsychologist:
		audience = reminder.AudienceBoth
	case sess.RemindPatient:
		audience = reminder.AudiencePatient
	case sess.RemindPsychologist:
		audience = reminder.AudiencePsychologist
	default:
		return
	}

	out, err := s.reminders.Dispatch(ctx, reminderInput(uid, sess, p, audience))
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("reminder dispatch rejected")
		res.Warnings = append(res.Warnings, Warning{Code: WarnReminderFailed, Message: err.Error()})
		return
	}
	switch out.Status {
	case reminder.StatusConfigError:
		res.Warnings = append(res.Warnings, Warning{Code: WarnReminderConfigError, Message: out.Message})
	case reminder.StatusFailed:
		res.Warnings = append(res.Warnings, Warning{Code: WarnReminderFailed, Message: out.Message})
	}
}

func calendarEvent(sess *Session, p *patient.Patient) calendar.Event {
	ev := calendar.Event{
		Summary:     "Sesión con " + sess.PatientName,
		Description: fmt.Sprintf("Tipo: %s\nEstado: %s\nDuración: %d minutos", sess.Type, sess.Status, sess.Duration),
		Start:       sess.Date.In(sess.Location()),
		End:         sess.EndDate.In(sess.Location()),
		TimeZone:    sess.TimeZone,
	}
	if p != nil && p.Email != "" {
		ev.Attendees = []string{p.Email}
	}
	return ev
}

// syncCalendar brings the external event in line with sess: confirmed
// sessions without an event get one, cancelled sessions lose theirs, and
// other changes update it in place. Failures become warnings.
func (s *Service) syncCalendar(ctx context.Context, uid string, sess *Session, p *patient.Patient, res *Result) {
	if s.calendar == nil {
		return
	}

	eventID := sess.CalendarEventID
	switch {
	case eventID == "" && sess.Status == StatusConfirmed:
		id, err := s.calendar.Insert(ctx, uid, calendarEvent(sess, p))
		if err != nil {
			res.Warnings = append(res.Warnings, s.calendarWarning(uid, sess.ID, err))
			return
		}
		eventID = id
	case eventID != "" && sess.Status == StatusCancelled:
		if err := s.calendar.Delete(ctx, uid, eventID); err != nil {
			res.Warnings = append(res.Warnings, s.calendarWarning(uid, sess.ID, err))
			return
		}
		eventID = ""
	case eventID != "":
		if err := s.calendar.Update(ctx, uid, eventID, calendarEvent(sess, p)); err != nil {
			res.Warnings = append(res.Warnings, s.calendarWarning(uid, sess.ID, err))
		}
		return
	default:
		return
	}

	sess.CalendarEventID = eventID
	if err := s.repo.Update(ctx, uid, sess); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("failed to store calendar event id")
	}
}

func (s *Service) calendarWarning(uid, sessionID string, err error) Warning {
	if errors.Is(err, calendar.ErrNotConnected) {
		return Warning{Code: WarnCalendarNotConnected, Message: "Google Calendar no está conectado; la sesión se guardó sin sincronizar."}
	}
	s.logger.Warn().Err(err).Str("uid", uid).Str("session_id", sessionID).Msg("calendar sync failed")
	return Warning{Code: WarnCalendarSyncFailed, Message: "No se pudo sincronizar con Google Calendar; la sesión se guardó."}
}

func (s *Service) publish(ctx context.Context, uid, eventType, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, websocket.Event{Type: eventType, Topic: websocket.SessionsTopic(uid), ID: id}); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish failed")
	}
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
