package telemetry

import (
	"context"
	"time"
)

type Repository interface {
	// Increment adds one to event's counter, creating it if needed, and
	// returns the new value.
	Increment(ctx context.Context, event string, at time.Time) (*Counter, error)
	List(ctx context.Context) ([]*Counter, error)
}
