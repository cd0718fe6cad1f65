package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const sessionCols = `id, patient_id, patient_name, date, end_date, time_zone, duration, type, status,
	remind_patient, remind_psychologist, calendar_event_id, notes, created_at, updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.PatientID, &s.PatientName, &s.Date, &s.EndDate, &s.TimeZone, &s.Duration,
		&s.Type, &s.Status, &s.RemindPatient, &s.RemindPsychologist, &s.CalendarEventID, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.localize()
	return &s, nil
}

func collect(rows pgx.Rows) ([]*Session, error) {
	defer rows.Close()
	items := []*Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, uid string, s *Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, patient_id, patient_name, date, end_date, time_zone, duration,
			type, status, remind_patient, remind_psychologist, calendar_event_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		s.ID, uid, s.PatientID, s.PatientName, s.Date, s.EndDate, s.TimeZone, s.Duration,
		s.Type, s.Status, s.RemindPatient, s.RemindPsychologist, s.CalendarEventID, s.Notes, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, uid, id string) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE user_id = $1 AND id = $2`, uid, id))
}

func (r *repoPG) Update(ctx context.Context, uid string, s *Session) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET patient_id = $3, patient_name = $4, date = $5, end_date = $6, time_zone = $7,
			duration = $8, type = $9, status = $10, remind_patient = $11, remind_psychologist = $12,
			calendar_event_id = $13, notes = $14, updated_at = $15
		WHERE user_id = $1 AND id = $2`,
		uid, s.ID, s.PatientID, s.PatientName, s.Date, s.EndDate, s.TimeZone, s.Duration, s.Type, s.Status,
		s.RemindPatient, s.RemindPsychologist, s.CalendarEventID, s.Notes, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, uid, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND id = $2`, uid, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, uid string, f ListFilter, limit, offset int) ([]*Session, int, error) {
	where := ` WHERE user_id = $1`
	args := []interface{}{uid}
	idx := 2

	if !f.From.IsZero() {
		where += fmt.Sprintf(` AND date >= $%d`, idx)
		args = append(args, f.From)
		idx++
	}
	if !f.To.IsZero() {
		where += fmt.Sprintf(` AND date < $%d`, idx)
		args = append(args, f.To)
		idx++
	}
	if f.PatientID != "" {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	query := `SELECT ` + sessionCols + ` FROM sessions` + where +
		fmt.Sprintf(` ORDER BY date, id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return items, total, nil
}

func (r *repoPG) InRange(ctx context.Context, uid string, from, to time.Time, patientID string) ([]*Session, error) {
	query := `SELECT ` + sessionCols + ` FROM sessions WHERE user_id = $1 AND date < $2 AND end_date > $3`
	args := []interface{}{uid, to, from}
	if patientID != "" {
		query += ` AND patient_id = $4`
		args = append(args, patientID)
	}
	query += ` ORDER BY date`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sessions in range: %w", err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("sessions in range: %w", err)
	}
	return items, nil
}
