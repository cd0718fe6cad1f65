package note

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

type noteDoc struct {
	Title     string    `firestore:"title"`
	Type      string    `firestore:"type"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type repoFirestore struct{ client *firestore.Client }

func NewRepoFirestore(client *firestore.Client) Repository { return &repoFirestore{client: client} }

func fromSnapshot(patientID string, snap *firestore.DocumentSnapshot) (*Note, error) {
	var d noteDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode note %s: %w", snap.Ref.ID, err)
	}
	return &Note{
		ID: snap.Ref.ID, PatientID: patientID, Title: d.Title, Type: d.Type,
		Content: d.Content, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

func (r *repoFirestore) Create(ctx context.Context, uid string, n *Note) error {
	doc := noteDoc{Title: n.Title, Type: n.Type, Content: n.Content, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
	if _, err := docstore.Notes(r.client, uid, n.PatientID).Doc(n.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

func (r *repoFirestore) Get(ctx context.Context, uid, patientID, id string) (*Note, error) {
	snap, err := docstore.Notes(r.client, uid, patientID).Doc(id).Get(ctx)
	if docstore.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return fromSnapshot(patientID, snap)
}

func (r *repoFirestore) Update(ctx context.Context, uid string, n *Note) error {
	_, err := docstore.Notes(r.client, uid, n.PatientID).Doc(n.ID).Update(ctx, []firestore.Update{
		{Path: "title", Value: n.Title},
		{Path: "type", Value: n.Type},
		{Path: "content", Value: n.Content},
		{Path: "updatedAt", Value: n.UpdatedAt},
	})
	if docstore.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

func (r *repoFirestore) Delete(ctx context.Context, uid, patientID, id string) error {
	ref := docstore.Notes(r.client, uid, patientID).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if docstore.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get note: %w", err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (r *repoFirestore) List(ctx context.Context, uid, patientID string, f ListFilter, limit, offset int) ([]*Note, int, error) {
	q := docstore.Notes(r.client, uid, patientID).Query
	if !f.From.IsZero() {
		q = q.Where("createdAt", ">=", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("createdAt", "<", f.To)
	}
	iter := q.OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var all []*Note
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("list notes: %w", err)
		}
		n, err := fromSnapshot(patientID, snap)
		if err != nil {
			return nil, 0, err
		}
		all = append(all, n)
	}
	return pagination.Page(all, pagination.Params{Limit: limit, Offset: offset}), len(all), nil
}
