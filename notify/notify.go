/*
Package notify tells interested parties that a collection changed.

PURPOSE:
  Every committed write to a collection produces an Event naming the
  collection and its new version. Open dashboards and other server
  instances use these events to know when to reload, instead of polling.

COMPONENTS:
  - Local: in-process fan-out to subscribers (SSE streams, tests)
  - Redis: publishes events on a Redis channel and forwards events from
    other instances into a Local
  - Store: a records.TxStore decorator that publishes after each commit

Delivery is best effort: a slow subscriber misses events rather than
blocking writers, and a failed publish never fails the write.
*/
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tess/backoffice/records"
)

// Event reports a committed write to one collection.
type Event struct {
	Collection records.CollectionName `json:"collection"`
	Version    int64                  `json:"version"`
	At         time.Time              `json:"at"`
	Origin     string                 `json:"origin"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Publishers fans one event out to several publishers.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// LOCAL - In-process fan-out
// =============================================================================

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

type Local struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
}

func NewLocal() *Local {
	return &Local{subs: make(map[int]chan Event), buffer: DefaultBuffer}
}

// Subscribe returns a channel of events and a function that ends the
// subscription and closes the channel.
func (l *Local) Subscribe() (<-chan Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, l.buffer)
	if l.closed {
		close(ch)
		return ch, func() {}
	}
	id := l.next
	l.next++
	l.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if c, ok := l.subs[id]; ok {
				delete(l.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers e to every subscriber with room in its queue.
func (l *Local) Publish(_ context.Context, e Event) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, ch := range l.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// Close ends every subscription.
func (l *Local) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}
