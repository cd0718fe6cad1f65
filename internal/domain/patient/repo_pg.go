package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const patientCols = `id, name, email, phone, status, COALESCE(to_char(dob, 'YYYY-MM-DD'), ''), notes, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Status, &p.DOB, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, uid string, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, user_id, name, email, phone, status, dob, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::date, $8, $9, $10)`,
		p.ID, uid, p.Name, p.Email, p.Phone, p.Status, p.DOB, p.Notes, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, uid, id string) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE user_id = $1 AND id = $2`, uid, id))
}

func (r *repoPG) Update(ctx context.Context, uid string, p *Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET name = $3, email = $4, phone = $5, status = $6,
			dob = NULLIF($7, '')::date, notes = $8, updated_at = $9
		WHERE user_id = $1 AND id = $2`,
		uid, p.ID, p.Name, p.Email, p.Phone, p.Status, p.DOB, p.Notes, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete relies on the notes.patient_id foreign key cascading.
func (r *repoPG) Delete(ctx context.Context, uid, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE user_id = $1 AND id = $2`, uid, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, uid string, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE user_id = $1`
	args := []interface{}{uid}
	idx := 2

	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Query != "" {
		where += fmt.Sprintf(` AND starts_with(lower(name), lower($%d))`, idx)
		args = append(args, f.Query)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	query := `SELECT ` + patientCols + ` FROM patients` + where +
		fmt.Sprintf(` ORDER BY lower(name), id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	items := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
