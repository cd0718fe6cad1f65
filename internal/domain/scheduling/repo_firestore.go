package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/zenda/zenda/internal/platform/docstore"
	"github.com/zenda/zenda/pkg/pagination"
)

type sessionDoc struct {
	PatientID          string    `firestore:"patientId"`
	PatientName        string    `firestore:"patientName"`
	Date               time.Time `firestore:"date"`
	EndDate            time.Time `firestore:"endDate"`
	TimeZone           string    `firestore:"timeZone"`
	Duration           int       `firestore:"duration"`
	Type               string    `firestore:"type"`
	Status             string    `firestore:"status"`
	RemindPatient      bool      `firestore:"remindPatient"`
	RemindPsychologist bool      `firestore:"remindPsychologist"`
	CalendarEventID    string    `firestore:"calendarEventId"`
	Notes              string    `firestore:"notes"`
	CreatedAt          time.Time `firestore:"createdAt"`
	UpdatedAt          time.Time `firestore:"updatedAt"`
}

func toDoc(s *Session) sessionDoc {
	return sessionDoc{
		PatientID: s.PatientID, PatientName: s.PatientName, Date: s.Date, EndDate: s.EndDate,
		TimeZone: s.TimeZone, Duration: s.Duration, Type: s.Type, Status: s.Status,
		RemindPatient: s.RemindPatient, RemindPsychologist: s.RemindPsychologist,
		CalendarEventID: s.CalendarEventID, Notes: s.Notes, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*Session, error) {
	var d sessionDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", snap.Ref.ID, err)
	}
	s := &Session{
		ID: snap.Ref.ID, PatientID: d.PatientID, PatientName: d.PatientName, Date: d.Date, EndDate: d.EndDate,
		TimeZone: d.TimeZone, Duration: d.Duration, Type: d.Type, Status: d.Status,
		RemindPatient: d.RemindPatient, RemindPsychologist: d.RemindPsychologist,
		CalendarEventID: d.CalendarEventID, Notes: d.Notes, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	s.localize()
	return s, nil
}

type repoFirestore struct{ client *firestore.Client }

func NewRepoFirestore(client *firestore.Client) Repository { return &repoFirestore{client: client} }

func (r *repoFirestore) Create(ctx context.Context, uid string, s *Session) error {
	if _, err := docstore.Sessions(r.client, uid).Doc(s.ID).Create(ctx, toDoc(s)); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *repoFirestore) Get(ctx context.Context, uid, id string) (*Session, error) {
	snap, err := docstore.Sessions(r.client, uid).Doc(id).Get(ctx)
	if docstore.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return fromSnapshot(snap)
}

func (r *repoFirestore) Update(ctx context.Context, uid string, s *Session) error {
	_, err := docstore.Sessions(r.client, uid).Doc(s.ID).Update(ctx, []firestore.Update{
		{Path: "patientId", Value: s.PatientID},
		{Path: "patientName", Value: s.PatientName},
		{Path: "date", Value: s.Date},
		{Path: "endDate", Value: s.EndDate},
		{Path: "timeZone", Value: s.TimeZone},
		{Path: "duration", Value: s.Duration},
		{Path: "type", Value: s.Type},
		{Path: "status", Value: s.Status},
		{Path: "remindPatient", Value: s.RemindPatient},
		{Path: "remindPsychologist", Value: s.RemindPsychologist},
		{Path: "calendarEventId", Value: s.CalendarEventID},
		{Path: "notes", Value: s.Notes},
		{Path: "updatedAt", Value: s.UpdatedAt},
	})
	if docstore.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (r *repoFirestore) Delete(ctx context.Context, uid, id string) error {
	ref := docstore.Sessions(r.client, uid).Doc(id)
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if docstore.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *repoFirestore) query(ctx context.Context, q firestore.Query, keep func(*Session) bool) ([]*Session, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*Session
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		s, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		if keep(s) {
			out = append(out, s)
		}
	}
}

// List applies the date range in the query and the remaining filters in
// memory so no composite index is needed.
func (r *repoFirestore) List(ctx context.Context, uid string, f ListFilter, limit, offset int) ([]*Session, int, error) {
	q := docstore.Sessions(r.client, uid).OrderBy("date", firestore.Asc)
	if !f.From.IsZero() {
		q = q.Where("date", ">=", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("date", "<", f.To)
	}
	all, err := r.query(ctx, q, f.matches)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return pagination.Page(all, pagination.Params{Limit: limit, Offset: offset}), len(all), nil
}

// InRange queries date < to and filters endDate in memory; Firestore allows
// range filters on a single field only.
func (r *repoFirestore) InRange(ctx context.Context, uid string, from, to time.Time, patientID string) ([]*Session, error) {
	q := docstore.Sessions(r.client, uid).Where("date", "<", to).OrderBy("date", firestore.Asc)
	out, err := r.query(ctx, q, func(s *Session) bool {
		return s.EndDate.After(from) && (patientID == "" || s.PatientID == patientID)
	})
	if err != nil {
		return nil, fmt.Errorf("sessions in range: %w", err)
	}
	return out, nil
}
