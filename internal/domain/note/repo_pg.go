package note

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const noteCols = `id, patient_id, title, type, content, created_at, updated_at`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.PatientID, &n.Title, &n.Type, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repoPG) Create(ctx context.Context, uid string, n *Note) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notes (id, user_id, patient_id, title, type, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, uid, n.PatientID, n.Title, n.Type, n.Content, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, uid, patientID, id string) (*Note, error) {
	return scanNote(r.pool.QueryRow(ctx,
		`SELECT `+noteCols+` FROM notes WHERE user_id = $1 AND patient_id = $2 AND id = $3`,
		uid, patientID, id))
}

func (r *repoPG) Update(ctx context.Context, uid string, n *Note) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notes SET title = $4, type = $5, content = $6, updated_at = $7
		WHERE user_id = $1 AND patient_id = $2 AND id = $3`,
		uid, n.PatientID, n.ID, n.Title, n.Type, n.Content, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, uid, patientID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notes WHERE user_id = $1 AND patient_id = $2 AND id = $3`, uid, patientID, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, uid, patientID string, f ListFilter, limit, offset int) ([]*Note, int, error) {
	where := ` WHERE user_id = $1 AND patient_id = $2`
	args := []interface{}{uid, patientID}
	idx := 3

	if !f.From.IsZero() {
		where += fmt.Sprintf(` AND created_at >= $%d`, idx)
		args = append(args, f.From)
		idx++
	}
	if !f.To.IsZero() {
		where += fmt.Sprintf(` AND created_at < $%d`, idx)
		args = append(args, f.To)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	query := `SELECT ` + noteCols + ` FROM notes` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := []*Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}
