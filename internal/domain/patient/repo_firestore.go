package patient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/zenda/zenda/internal/platform/docstore"
	"github.com/zenda/zenda/pkg/pagination"
)

type patientDoc struct {
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email"`
	Phone     string    `firestore:"phone"`
	Status    string    `firestore:"status"`
	DOB       string    `firestore:"dob"`
	Notes     string    `firestore:"notes"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func toDoc(p *Patient) patientDoc {
	return patientDoc{
		Name: p.Name, Email: p.Email, Phone: p.Phone, Status: p.Status,
		DOB: p.DOB, Notes: p.Notes, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*Patient, error) {
	var d patientDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode patient %s: %w", snap.Ref.ID, err)
	}
	return &Patient{
		ID: snap.Ref.ID, Name: d.Name, Email: d.Email, Phone: d.Phone, Status: d.Status,
		DOB: d.DOB, Notes: d.Notes, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

type repoFirestore struct{ client *firestore.Client }

func NewRepoFirestore(client *firestore.Client) Repository { return &repoFirestore{client: client} }

func (r *repoFirestore) Create(ctx context.Context, uid string, p *Patient) error {
	if _, err := docstore.Patients(r.client, uid).Doc(p.ID).Create(ctx, toDoc(p)); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (r *repoFirestore) Get(ctx context.Context, uid, id string) (*Patient, error) {
	snap, err := docstore.Patients(r.client, uid).Doc(id).Get(ctx)
	if docstore.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return fromSnapshot(snap)
}

func (r *repoFirestore) Update(ctx context.Context, uid string, p *Patient) error {
	ref := docstore.Patients(r.client, uid).Doc(p.ID)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "name", Value: p.Name},
		{Path: "email", Value: p.Email},
		{Path: "phone", Value: p.Phone},
		{Path: "status", Value: p.Status},
		{Path: "dob", Value: p.DOB},
		{Path: "notes", Value: p.Notes},
		{Path: "updatedAt", Value: p.UpdatedAt},
	})
	if docstore.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

// Delete removes the notes subcollection first; Firestore does not cascade.
func (r *repoFirestore) Delete(ctx context.Context, uid, id string) error {
	ref := docstore.Patients(r.client, uid).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if docstore.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get patient: %w", err)
	}
	if err := docstore.DeleteAll(ctx, r.client, docstore.Notes(r.client, uid, id)); err != nil {
		return fmt.Errorf("delete patient notes: %w", err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}

// List filters by status in the query and by name prefix in memory so the
// prefix match stays case-insensitive.
func (r *repoFirestore) List(ctx context.Context, uid string, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	q := docstore.Patients(r.client, uid).Query
	if f.Status != "" {
		q = q.Where("status", "==", f.Status)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var all []*Patient
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("list patients: %w", err)
		}
		p, err := fromSnapshot(snap)
		if err != nil {
			return nil, 0, err
		}
		if f.matches(p) {
			all = append(all, p)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := strings.ToLower(all[i].Name), strings.ToLower(all[j].Name)
		if a != b {
			return a < b
		}
		return all[i].ID < all[j].ID
	})
	return pagination.Page(all, pagination.Params{Limit: limit, Offset: offset}), len(all), nil
}
