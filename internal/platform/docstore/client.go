// Package docstore holds the Firestore bootstrap and the collection layout
// shared by the document-store repositories.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	UsersCollection        = "users"
	PatientsCollection     = "patients"
	NotesCollection        = "notes"
	SessionsCollection     = "sessions"
	ButtonClicksCollection = "buttonClicks"
)

// NewClient creates a Firestore client for projectID.
func NewClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore")
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return client, nil
}

// User is users/{uid}.
func User(c *firestore.Client, uid string) *firestore.DocumentRef {
	return c.Collection(UsersCollection).Doc(uid)
}

// Patients is users/{uid}/patients.
func Patients(c *firestore.Client, uid string) *firestore.CollectionRef {
	return User(c, uid).Collection(PatientsCollection)
}

// Notes is users/{uid}/patients/{patientID}/notes.
func Notes(c *firestore.Client, uid, patientID string) *firestore.CollectionRef {
	return Patients(c, uid).Doc(patientID).Collection(NotesCollection)
}

// Sessions is users/{uid}/sessions.
func Sessions(c *firestore.Client, uid string) *firestore.CollectionRef {
	return User(c, uid).Collection(SessionsCollection)
}

// ButtonClicks is the global buttonClicks collection.
func ButtonClicks(c *firestore.Client) *firestore.CollectionRef {
	return c.Collection(ButtonClicksCollection)
}

// IsNotFound reports whether err is a Firestore NotFound status.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// DeleteAll removes every document in col.
func DeleteAll(ctx context.Context, c *firestore.Client, col *firestore.CollectionRef) error {
	bw := c.BulkWriter(ctx)
	iter := col.Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			bw.End()
			return fmt.Errorf("list %s: %w", col.ID, err)
		}
		if _, err := bw.Delete(snap.Ref); err != nil {
			bw.End()
			return fmt.Errorf("queue delete %s: %w", snap.Ref.ID, err)
		}
	}
	bw.End()
	return nil
}

// Pinger checks Firestore reachability with a single-document read.
type Pinger struct {
	Client *firestore.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	iter := ButtonClicks(p.Client).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}
