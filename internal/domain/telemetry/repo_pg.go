package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) Increment(ctx context.Context, event string, at time.Time) (*Counter, error) {
	var c Counter
	err := r.pool.QueryRow(ctx, `
		INSERT INTO button_clicks (event, count, last_clicked_at) VALUES ($1, 1, $2)
		ON CONFLICT (event) DO UPDATE
			SET count = button_clicks.count + 1, last_clicked_at = EXCLUDED.last_clicked_at
		RETURNING event, count, last_clicked_at`, event, at).Scan(&c.Event, &c.Count, &c.LastClickedAt)
	if err != nil {
		return nil, fmt.Errorf("increment click counter: %w", err)
	}
	return &c, nil
}

func (r *repoPG) List(ctx context.Context) ([]*Counter, error) {
	rows, err := r.pool.Query(ctx, `SELECT event, count, last_clicked_at FROM button_clicks ORDER BY count DESC, event`)
	if err != nil {
		return nil, fmt.Errorf("list click counters: %w", err)
	}
	defer rows.Close()

	items := []*Counter{}
	for rows.Next() {
		var c Counter
		if err := rows.Scan(&c.Event, &c.Count, &c.LastClickedAt); err != nil {
			return nil, fmt.Errorf("scan click counter: %w", err)
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}
