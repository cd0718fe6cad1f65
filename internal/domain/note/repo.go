package note

import "context"

type Repository interface {
	Create(ctx context.Context, uid string, n *Note) error
	Get(ctx context.Context, uid, patientID, id string) (*Note, error)
	Update(ctx context.Context, uid string, n *Note) error
	Delete(ctx context.Context, uid, patientID, id string) error
	// List returns notes newest first.
	List(ctx context.Context, uid, patientID string, f ListFilter, limit, offset int) ([]*Note, int, error)
}
