package patient

import "context"

// Repository persists patients scoped to a psychologist uid.
type Repository interface {
	Create(ctx context.Context, uid string, p *Patient) error
	Get(ctx context.Context, uid, id string) (*Patient, error)
	Update(ctx context.Context, uid string, p *Patient) error
	// Delete removes the patient together with their notes.
	Delete(ctx context.Context, uid, id string) error
	List(ctx context.Context, uid string, f ListFilter, limit, offset int) ([]*Patient, int, error)
}
