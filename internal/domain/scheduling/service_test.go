package scheduling

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/domain/patient"
	"github.com/zenda/zenda/internal/domain/reminder"
	"github.com/zenda/zenda/internal/platform/calendar"
	"github.com/zenda/zenda/internal/platform/validation"
	"github.com/zenda/zenda/internal/platform/websocket"
	"github.com/zenda/zenda/pkg/pagination"
)

// -- Mocks --

type mockRepo struct {
	sessions map[string]map[string]*Session // uid -> id -> session
	creates  int
	failList error
}

func newMockRepo() *mockRepo {
	return &mockRepo{sessions: make(map[string]map[string]*Session)}
}

func (m *mockRepo) Create(_ context.Context, uid string, s *Session) error {
	if m.sessions[uid] == nil {
		m.sessions[uid] = make(map[string]*Session)
	}
	cp := *s
	m.sessions[uid][s.ID] = &cp
	m.creates++
	return nil
}

func (m *mockRepo) Get(_ context.Context, uid, id string) (*Session, error) {
	s, ok := m.sessions[uid][id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, uid string, s *Session) error {
	if _, ok := m.sessions[uid][s.ID]; !ok {
		return ErrNotFound
	}
	cp := *s
	m.sessions[uid][s.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, uid, id string) error {
	if _, ok := m.sessions[uid][id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions[uid], id)
	return nil
}

func (m *mockRepo) sorted(uid string, keep func(*Session) bool) []*Session {
	var out []*Session
	for _, s := range m.sessions[uid] {
		if keep(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (m *mockRepo) List(_ context.Context, uid string, f ListFilter, limit, offset int) ([]*Session, int, error) {
	all := m.sorted(uid, f.matches)
	return pagination.Page(all, pagination.Params{Limit: limit, Offset: offset}), len(all), nil
}

func (m *mockRepo) InRange(_ context.Context, uid string, from, to time.Time, patientID string) ([]*Session, error) {
	if m.failList != nil {
		return nil, m.failList
	}
	return m.sorted(uid, func(s *Session) bool {
		return s.Date.Before(to) && s.EndDate.After(from) && (patientID == "" || s.PatientID == patientID)
	}), nil
}

type patientMap map[string]*patient.Patient

func (m patientMap) Get(_ context.Context, _ string, id string) (*patient.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type fakeCalendar struct {
	insertErr error
	updateErr error
	deleteErr error
	inserted  []calendar.Event
	updated   []string
	deleted   []string
}

func (f *fakeCalendar) Insert(_ context.Context, _ string, ev calendar.Event) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.inserted = append(f.inserted, ev)
	return "evt-1", nil
}

func (f *fakeCalendar) Update(_ context.Context, _ string, eventID string, _ calendar.Event) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, eventID)
	return nil
}

func (f *fakeCalendar) Delete(_ context.Context, _ string, eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeReminders struct {
	result reminder.Result
	inputs []reminder.Input
}

func (f *fakeReminders) Dispatch(_ context.Context, in reminder.Input) (reminder.Result, error) {
	f.inputs = append(f.inputs, in)
	return f.result, nil
}

type recordingPublisher struct{ events []websocket.Event }

func (r *recordingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	svc       *Service
	repo      *mockRepo
	cal       *fakeCalendar
	reminders *fakeReminders
	events    *recordingPublisher
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		repo:      newMockRepo(),
		cal:       &fakeCalendar{},
		reminders: &fakeReminders{result: reminder.Result{Status: reminder.StatusSent}},
		events:    &recordingPublisher{},
	}
	patients := patientMap{
		"p1": {ID: "p1", Name: "Juan Pérez", Email: "juan@example.com", Phone: "600000000"},
		"p2": {ID: "p2", Name: "Ana Ruiz"},
	}
	all := append([]Option{WithCalendar(f.cal), WithReminders(f.reminders)}, opts...)
	f.svc = NewService(f.repo, patients, f.events, zerolog.Nop(), all...)
	f.svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func formAt(patientID, clock string, duration DurationChoice) Form {
	return Form{PatientID: patientID, Date: "2025-03-03", Time: clock, Duration: duration, Type: TypeIndividual, Status: StatusConfirmed}
}

// -- Tests --

func TestCreateSession(t *testing.T) {
	f := newFixture()
	form := formAt("p1", "09:00", "45")
	form.RemindPatient = true

	res, err := f.svc.CreateSession(context.Background(), "u1", form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := res.Session
	if s.ID == "" || s.PatientName != "Juan Pérez" {
		t.Errorf("unexpected session %+v", s)
	}
	if s.EndDate.Sub(s.Date) != 45*time.Minute || s.Duration != 45 {
		t.Errorf("expected 45 minute session, got %s", s.EndDate.Sub(s.Date))
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %+v", res.Warnings)
	}
	if s.CalendarEventID != "evt-1" {
		t.Errorf("expected calendar event id, got %q", s.CalendarEventID)
	}
	stored, _ := f.repo.Get(context.Background(), "u1", s.ID)
	if stored.CalendarEventID != "evt-1" {
		t.Error("expected event id to be persisted")
	}

	ev := f.cal.inserted[0]
	if ev.Summary != "Sesión con Juan Pérez" {
		t.Errorf("unexpected summary %q", ev.Summary)
	}
	if len(ev.Attendees) != 1 || ev.Attendees[0] != "juan@example.com" {
		t.Errorf("unexpected attendees %v", ev.Attendees)
	}
	if ev.TimeZone != "UTC" {
		t.Errorf("unexpected time zone %q", ev.TimeZone)
	}

	if len(f.reminders.inputs) != 1 || f.reminders.inputs[0].Audience != reminder.AudiencePatient {
		t.Errorf("expected one patient reminder, got %+v", f.reminders.inputs)
	}
	if f.reminders.inputs[0].PatientEmail != "juan@example.com" {
		t.Error("expected patient email on reminder")
	}

	if len(f.events.events) != 1 || f.events.events[0].Type != "session.created" || f.events.events[0].Topic != websocket.SessionsTopic("u1") {
		t.Errorf("unexpected events %+v", f.events.events)
	}
}

func TestCreateSession_CustomDuration(t *testing.T) {
	f := newFixture()
	form := formAt("p1", "09:00", DurationCustom)
	form.CustomDuration = 50

	res, err := f.svc.CreateSession(context.Background(), "u1", form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Session.EndDate.Sub(res.Session.Date); got != 50*time.Minute {
		t.Errorf("expected exactly 50 minutes, got %s", got)
	}
}

func TestCreateSession_OverlapRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "45")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := f.svc.CreateSession(ctx, "u1", formAt("p1", "09:30", "45"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.repo.creates != 1 {
		t.Errorf("expected no write on conflict, got %d creates", f.repo.creates)
	}
	if len(f.cal.inserted) != 1 {
		t.Errorf("expected no calendar call on conflict, got %d inserts", len(f.cal.inserted))
	}

	if _, err := f.svc.CreateSession(ctx, "u1", formAt("p1", "09:45", "45")); err != nil {
		t.Errorf("expected back-to-back session to be accepted, got %v", err)
	}
}

func TestCreateSession_ScopeCalendarBlocksOtherPatients(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))

	_, err := f.svc.CreateSession(ctx, "u1", formAt("p2", "09:30", "30"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected calendar-wide conflict, got %v", err)
	}
}

func TestCreateSession_ScopePatientAllowsOtherPatients(t *testing.T) {
	f := newFixture(WithScope(ScopePatient))
	ctx := context.Background()
	f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))

	if _, err := f.svc.CreateSession(ctx, "u1", formAt("p2", "09:30", "30")); err != nil {
		t.Errorf("expected other patient to be allowed, got %v", err)
	}
	if _, err := f.svc.CreateSession(ctx, "u1", formAt("p1", "09:30", "30")); err == nil {
		t.Error("expected same patient to conflict")
	}
}

func TestCreateSession_OtherUsersDoNotConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))
	if _, err := f.svc.CreateSession(ctx, "u2", formAt("p1", "09:00", "60")); err != nil {
		t.Errorf("expected separate calendars per user, got %v", err)
	}
}

func TestCreateSession_CancelledSkipsCheck(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))

	form := formAt("p1", "09:00", "60")
	form.Status = StatusCancelled
	res, err := f.svc.CreateSession(ctx, "u1", form)
	if err != nil {
		t.Fatalf("expected cancelled session to be stored, got %v", err)
	}
	if res.Session.CalendarEventID != "" {
		t.Error("expected no calendar event for cancelled session")
	}
}

func TestCreateSession_CalendarNotConnected(t *testing.T) {
	f := newFixture()
	f.cal.insertErr = calendar.ErrNotConnected

	res, err := f.svc.CreateSession(context.Background(), "u1", formAt("p1", "09:00", "45"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != WarnCalendarNotConnected {
		t.Errorf("expected calendar_not_connected warning, got %+v", res.Warnings)
	}
	if _, err := f.repo.Get(context.Background(), "u1", res.Session.ID); err != nil {
		t.Error("expected session to be persisted")
	}
}

func TestCreateSession_CalendarFailureStillPersists(t *testing.T) {
	f := newFixture()
	f.cal.insertErr = errors.New("network unreachable")

	res, err := f.svc.CreateSession(context.Background(), "u1", formAt("p1", "09:00", "45"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != WarnCalendarSyncFailed {
		t.Errorf("expected calendar_sync_failed warning, got %+v", res.Warnings)
	}
	stored, err := f.repo.Get(context.Background(), "u1", res.Session.ID)
	if err != nil {
		t.Fatal("expected session to be persisted")
	}
	if stored.CalendarEventID != "" {
		t.Error("expected no event id after failed sync")
	}
}

func TestCreateSession_PendingNotSynced(t *testing.T) {
	f := newFixture()
	form := formAt("p1", "09:00", "45")
	form.Status = StatusPending
	if _, err := f.svc.CreateSession(context.Background(), "u1", form); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.cal.inserted) != 0 {
		t.Error("expected pending session not to be synced")
	}
}

func TestCreateSession_WithoutCalendar(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, patientMap{"p1": {ID: "p1", Name: "Juan Pérez"}}, nil, zerolog.Nop())
	res, err := svc.CreateSession(context.Background(), "u1", formAt("p1", "09:00", "45"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings without calendar, got %+v", res.Warnings)
	}
}

func TestCreateSession_ReminderWarnings(t *testing.T) {
	tests := []struct {
		status string
		code   string
	}{
		{reminder.StatusConfigError, WarnReminderConfigError},
		{reminder.StatusFailed, WarnReminderFailed},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			f := newFixture()
			f.reminders.result = reminder.Result{Status: tt.status, Message: "x"}
			form := formAt("p1", "09:00", "45")
			form.RemindPatient = true
			form.RemindPsychologist = true

			res, err := f.svc.CreateSession(context.Background(), "u1", form)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.reminders.inputs[0].Audience != reminder.AudienceBoth {
				t.Errorf("expected audience both, got %s", f.reminders.inputs[0].Audience)
			}
			if len(res.Warnings) != 1 || res.Warnings[0].Code != tt.code {
				t.Errorf("expected %s warning, got %+v", tt.code, res.Warnings)
			}
		})
	}
}

func TestCreateSession_NoReminderRequested(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.CreateSession(context.Background(), "u1", formAt("p1", "09:00", "45")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.reminders.inputs) != 0 {
		t.Error("expected no reminder dispatch")
	}
}

func TestCreateSession_PendingSkipsReminder(t *testing.T) {
	f := newFixture()
	form := formAt("p1", "09:00", "45")
	form.Status = StatusPending
	form.RemindPatient = true
	if _, err := f.svc.CreateSession(context.Background(), "u1", form); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.reminders.inputs) != 0 {
		t.Error("expected no reminder for a pending session")
	}
}

func TestCreateSession_Validation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateSession(context.Background(), "u1", Form{PatientID: "p1"})
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if verrs["date"] == "" || verrs["time"] == "" || verrs["duration"] == "" {
		t.Errorf("unexpected errors %v", verrs)
	}

	_, err = f.svc.CreateSession(context.Background(), "u1", formAt("missing", "09:00", "45"))
	if !errors.As(err, &verrs) || verrs["patientId"] == "" {
		t.Errorf("expected patientId error, got %v", err)
	}
}

func TestCreateSession_RepoErrorPropagates(t *testing.T) {
	f := newFixture()
	f.repo.failList = errors.New("db down")
	if _, err := f.svc.CreateSession(context.Background(), "u1", formAt("p1", "09:00", "45")); err == nil {
		t.Fatal("expected error when overlap lookup fails")
	}
	if f.repo.creates != 0 {
		t.Error("expected no write when overlap lookup fails")
	}
}

func TestUpdateSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, _ := f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))

	// Moving within its own slot must not conflict with itself.
	res, err := f.svc.UpdateSession(ctx, "u1", created.Session.ID, formAt("p1", "09:30", "60"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Session.Date.Hour() != 9 || res.Session.Date.Minute() != 30 {
		t.Errorf("expected new start, got %s", res.Session.Date)
	}
	if len(f.cal.updated) != 1 || f.cal.updated[0] != "evt-1" {
		t.Errorf("expected calendar update, got %v", f.cal.updated)
	}
	if f.events.events[len(f.events.events)-1].Type != "session.updated" {
		t.Error("expected session.updated event")
	}
}

func TestUpdateSession_Conflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))
	second, _ := f.svc.CreateSession(ctx, "u1", formAt("p1", "11:00", "60"))

	_, err := f.svc.UpdateSession(ctx, "u1", second.Session.ID, formAt("p1", "09:45", "60"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	stored, _ := f.repo.Get(ctx, "u1", second.Session.ID)
	if stored.Date.Hour() != 11 {
		t.Error("expected stored session to be unchanged")
	}
}

func TestUpdateSession_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateSession(context.Background(), "u1", "nope", formAt("p1", "09:00", "60"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_CancelRemovesEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, _ := f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))

	res, err := f.svc.UpdateStatus(ctx, "u1", created.Session.ID, StatusForm{Status: StatusCancelled})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Session.Status != StatusCancelled || res.Session.CalendarEventID != "" {
		t.Errorf("unexpected session %+v", res.Session)
	}
	if len(f.cal.deleted) != 1 || f.cal.deleted[0] != "evt-1" {
		t.Errorf("expected calendar delete, got %v", f.cal.deleted)
	}
	stored, _ := f.repo.Get(ctx, "u1", created.Session.ID)
	if stored.CalendarEventID != "" {
		t.Error("expected cleared event id to be persisted")
	}
}

func TestUpdateStatus_AnyTransitionAllowed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	form := formAt("p1", "09:00", "60")
	form.Status = StatusPending
	created, _ := f.svc.CreateSession(ctx, "u1", form)

	for _, status := range []string{StatusNoShow, StatusCancelled, StatusConfirmed, StatusPending} {
		if _, err := f.svc.UpdateStatus(ctx, "u1", created.Session.ID, StatusForm{Status: status}); err != nil {
			t.Errorf("transition to %s: %v", status, err)
		}
	}
}

func TestUpdateStatus_UncancelChecksOverlap(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cancelled := formAt("p1", "09:00", "60")
	cancelled.Status = StatusCancelled
	old, _ := f.svc.CreateSession(ctx, "u1", cancelled)
	f.svc.CreateSession(ctx, "u1", formAt("p2", "09:00", "60"))

	_, err := f.svc.UpdateStatus(ctx, "u1", old.Session.ID, StatusForm{Status: StatusConfirmed})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict when reviving a cancelled session, got %v", err)
	}
}

func TestUpdateStatus_Invalid(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateStatus(context.Background(), "u1", "s1", StatusForm{Status: "Terminada"})
	var verrs validation.Errors
	if !errors.As(err, &verrs) || verrs["status"] == "" {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, _ := f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))

	warnings, err := f.svc.DeleteSession(ctx, "u1", created.Session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings %+v", warnings)
	}
	if _, err := f.repo.Get(ctx, "u1", created.Session.ID); !errors.Is(err, ErrNotFound) {
		t.Error("expected session to be deleted")
	}
	if len(f.cal.deleted) != 1 {
		t.Error("expected calendar event to be deleted")
	}
}

func TestDeleteSession_CalendarFailureIsWarning(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, _ := f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))
	f.cal.deleteErr = errors.New("timeout")

	warnings, err := f.svc.DeleteSession(ctx, "u1", created.Session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Code != WarnCalendarSyncFailed {
		t.Errorf("expected sync warning, got %+v", warnings)
	}
}

func TestListSessions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.CreateSession(ctx, "u1", formAt("p1", "11:00", "60"))
	f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))
	f.svc.CreateSession(ctx, "u1", formAt("p2", "13:00", "60"))

	items, total, err := f.svc.ListSessions(ctx, "u1", ListFilter{PatientID: "p1"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || items[0].Date.Hour() != 9 {
		t.Errorf("expected p1 sessions ordered by date, got %d items", total)
	}

	_, _, err = f.svc.ListSessions(ctx, "u1", ListFilter{From: at(12, 0), To: at(10, 0)}, 20, 0)
	var verrs validation.Errors
	if !errors.As(err, &verrs) || verrs["to"] == "" {
		t.Errorf("expected range error, got %v", err)
	}

	_, _, err = f.svc.ListSessions(ctx, "u1", ListFilter{Status: "Nope"}, 20, 0)
	if !errors.As(err, &verrs) || verrs["status"] == "" {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))
	couple := formAt("p2", "11:00", "90")
	couple.Type = TypeCouple
	f.svc.CreateSession(ctx, "u1", couple)
	cancelled := formAt("p1", "15:00", "45")
	cancelled.Status = StatusCancelled
	f.svc.CreateSession(ctx, "u1", cancelled)

	st, err := f.svc.Stats(ctx, "u1", at(0, 0), at(23, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Total != 3 {
		t.Errorf("expected 3 sessions, got %d", st.Total)
	}
	if st.Minutes != 150 {
		t.Errorf("expected 150 scheduled minutes, got %d", st.Minutes)
	}
	if st.ByStatus[StatusConfirmed] != 2 || st.ByStatus[StatusCancelled] != 1 || st.ByStatus[StatusNoShow] != 0 {
		t.Errorf("unexpected status counts %v", st.ByStatus)
	}
	if st.ByType[TypeCouple] != 1 || st.ByType[TypeIndividual] != 2 {
		t.Errorf("unexpected type counts %v", st.ByType)
	}

	if _, err := f.svc.Stats(ctx, "u1", time.Time{}, at(23, 0)); err == nil {
		t.Error("expected error without from")
	}
}

func TestSendReminder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, _ := f.svc.CreateSession(ctx, "u1", formAt("p1", "09:00", "60"))

	res, err := f.svc.SendReminder(ctx, "u1", created.Session.ID, ReminderForm{Audience: reminder.AudiencePatient})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != reminder.StatusSent {
		t.Errorf("expected sent, got %s", res.Status)
	}
	in := f.reminders.inputs[len(f.reminders.inputs)-1]
	if in.PatientPhone != "600000000" || in.PatientName != "Juan Pérez" {
		t.Errorf("unexpected reminder input %+v", in)
	}
	if !in.SessionDate.Equal(created.Session.Date) {
		t.Errorf("expected session date, got %s", in.SessionDate)
	}

	_, err = f.svc.SendReminder(ctx, "u1", created.Session.ID, ReminderForm{Audience: "all"})
	var verrs validation.Errors
	if !errors.As(err, &verrs) || verrs["audience"] == "" {
		t.Errorf("expected audience error, got %v", err)
	}

	if _, err := f.svc.SendReminder(ctx, "u1", "missing", ReminderForm{Audience: reminder.AudienceBoth}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
