package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tess/backoffice/records"
)

// Store publishes an Event for every committed save to the wrapped store.
// Saves inside WithTx are published only once the transaction commits.
type Store struct {
	records.TxStore
	Publisher Publisher
	Origin    string
	Now       func() time.Time
}

func Wrap(inner records.TxStore, pub Publisher, origin string) *Store {
	return &Store{TxStore: inner, Publisher: pub, Origin: origin, Now: time.Now}
}

func (s *Store) Save(ctx context.Context, doc records.Document) (int64, error) {
	version, err := s.TxStore.Save(ctx, doc)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, []Event{s.event(doc.Name, version)})
	return version, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(records.Store) error) error {
	var pending []Event
	err := s.TxStore.WithTx(ctx, func(tx records.Store) error {
		pending = pending[:0]
		return fn(&recordingTx{Store: tx, parent: s, events: &pending})
	})
	if err != nil {
		return err
	}
	s.publish(ctx, pending)
	return nil
}

// Reset clears the wrapped store and announces every collection at version 0.
func (s *Store) Reset(ctx context.Context) error {
	r, ok := s.TxStore.(interface{ Reset(context.Context) error })
	if !ok {
		return errors.New("wrapped store does not support reset")
	}
	if err := r.Reset(ctx); err != nil {
		return err
	}
	events := make([]Event, 0, len(records.AllCollections))
	for _, name := range records.AllCollections {
		events = append(events, s.event(name, 0))
	}
	s.publish(ctx, events)
	return nil
}

func (s *Store) event(name records.CollectionName, version int64) Event {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return Event{Collection: name, Version: version, At: now(), Origin: s.Origin}
}

func (s *Store) publish(ctx context.Context, events []Event) {
	if s.Publisher == nil {
		return
	}
	for _, e := range latestPerCollection(events) {
		if err := s.Publisher.Publish(ctx, e); err != nil {
			log.Printf("[Notify] Publish %s v%d failed: %v", e.Collection, e.Version, err)
		}
	}
}

// latestPerCollection keeps the last event of each collection, in order of
// first appearance.
func latestPerCollection(events []Event) []Event {
	index := make(map[records.CollectionName]int, len(events))
	var out []Event
	for _, e := range events {
		if i, ok := index[e.Collection]; ok {
			out[i] = e
			continue
		}
		index[e.Collection] = len(out)
		out = append(out, e)
	}
	return out
}

type recordingTx struct {
	records.Store
	parent *Store
	mu     sync.Mutex
	events *[]Event
}

func (r *recordingTx) Save(ctx context.Context, doc records.Document) (int64, error) {
	version, err := r.Store.Save(ctx, doc)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	*r.events = append(*r.events, r.parent.event(doc.Name, version))
	r.mu.Unlock()
	return version, nil
}
