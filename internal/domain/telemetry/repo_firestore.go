package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/zenda/zenda/internal/platform/docstore"
)

type counterDoc struct {
	Event         string    `firestore:"event"`
	Count         int64     `firestore:"count"`
	LastClickedAt time.Time `firestore:"lastClickedAt"`
}

type repoFirestore struct{ client *firestore.Client }

func NewRepoFirestore(client *firestore.Client) Repository { return &repoFirestore{client: client} }

// Increment uses a server-side transform so concurrent clicks are not lost.
func (r *repoFirestore) Increment(ctx context.Context, event string, at time.Time) (*Counter, error) {
	ref := docstore.ButtonClicks(r.client).Doc(event)
	_, err := ref.Set(ctx, map[string]interface{}{
		"event":         event,
		"count":         firestore.Increment(1),
		"lastClickedAt": at,
	}, firestore.MergeAll)
	if err != nil {
		return nil, fmt.Errorf("increment click counter: %w", err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read click counter: %w", err)
	}
	var d counterDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode click counter: %w", err)
	}
	return &Counter{Event: event, Count: d.Count, LastClickedAt: d.LastClickedAt}, nil
}

func (r *repoFirestore) List(ctx context.Context) ([]*Counter, error) {
	iter := docstore.ButtonClicks(r.client).Documents(ctx)
	defer iter.Stop()

	items := []*Counter{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list click counters: %w", err)
		}
		var d counterDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode click counter %s: %w", snap.Ref.ID, err)
		}
		items = append(items, &Counter{Event: snap.Ref.ID, Count: d.Count, LastClickedAt: d.LastClickedAt})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Event < items[j].Event
	})
	return items, nil
}
