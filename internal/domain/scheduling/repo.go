package scheduling

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, uid string, s *Session) error
	Get(ctx context.Context, uid, id string) (*Session, error)
	Update(ctx context.Context, uid string, s *Session) error
	Delete(ctx context.Context, uid, id string) error
	List(ctx context.Context, uid string, f ListFilter, limit, offset int) ([]*Session, int, error)
	// InRange returns sessions with date < to and endDate > from, restricted
	// to patientID when it is not empty.
	InRange(ctx context.Context, uid string, from, to time.Time, patientID string) ([]*Session, error)
}
