// Package notify carries change events from writers to the views and
// forwarders that need to refresh.
//
// A Broker is passed explicitly to every producer and consumer. Each
// subscription owns a small buffer; when a slow subscriber's buffer is full
// the oldest pending event is replaced by the newest one, so bursts of writes
// coalesce into a single "something changed" signal. Consumers that must see
// every event, such as the AMQP forwarder, use a queued subscription instead.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"finances/internal/log"
)

// Entity names the kind of record a change touched.
type Entity string

const (
	EntityCategory    Entity = "category"
	EntityTransaction Entity = "transaction"
)

// Op is the mutation applied to the entity.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Event describes one committed write.
type Event struct {
	Entity Entity    `json:"entity"`
	Op     Op        `json:"op"`
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
}

// Publisher is the producer side of a Broker.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Broker fans events out to subscribers and remembers when the data last
// changed.
type Broker struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	last   time.Time
	seq    uint64
	closed bool
	now    func() time.Time
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[*Subscription]struct{}),
		now:  time.Now,
	}
}

// Subscription receives events from a Broker until it is closed.
type Subscription struct {
	broker *Broker
	ch     chan Event
	once   sync.Once

	// queued subscriptions only
	queued  bool
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	done    chan struct{}
}

// C returns the channel events are delivered on. It is closed when the
// subscription or the broker is closed.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close detaches the subscription from its broker.
func (s *Subscription) Close() {
	s.broker.remove(s)
}

// Subscribe registers a subscriber with a buffer of size events (minimum 1).
func (b *Broker) Subscribe(size int) *Subscription {
	s := &Subscription{broker: b, ch: make(chan Event, max(size, 1))}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// SubscribeQueue registers a subscriber that never loses or merges events:
// they queue without bound until read, in publish order. Publish still never
// blocks. Events pending when the subscription or the broker closes are
// discarded.
func (b *Broker) SubscribeQueue() *Subscription {
	s := &Subscription{
		broker: b,
		ch:     make(chan Event),
		queued: true,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.pump()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.shutdown()
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

func (s *Subscription) enqueue(e Event) {
	s.mu.Lock()
	s.pending = append(s.pending, e)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump moves queued events onto ch in order.
func (s *Subscription) pump() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		if len(batch) == 0 {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		for _, e := range batch {
			select {
			case s.ch <- e:
			case <-s.done:
				return
			}
		}
	}
}

func (s *Subscription) shutdown() {
	s.once.Do(func() {
		if s.queued {
			close(s.done)
			return
		}
		close(s.ch)
	})
}

// Publish records the event time and delivers e to every subscriber without
// blocking. A zero At is stamped with the current time.
func (b *Broker) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = b.now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if e.At.After(b.last) {
		b.last = e.At
	}
	b.seq++

	coalesced := 0
	for s := range b.subs {
		if s.queued {
			s.enqueue(e)
			continue
		}
		select {
		case s.ch <- e:
			continue
		default:
		}
		// Full: drop the stale pending event and keep the newest.
		select {
		case <-s.ch:
			coalesced++
		default:
		}
		select {
		case s.ch <- e:
		default:
		}
	}

	slog.DebugContext(ctx, "Change published",
		log.FieldComponent, log.ComponentNotify,
		"entity", e.Entity,
		"op", e.Op,
		"id", e.ID,
		"subscribers", len(b.subs),
		"coalesced", coalesced)
}

// LastUpdated reports when the most recent event was published; zero before
// the first write.
func (b *Broker) LastUpdated() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Version counts the events published so far. Readers caching derived data
// compare it before and after to detect intervening writes.
func (b *Broker) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Close closes every subscription. Later publishes are ignored.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.shutdown()
		delete(b.subs, s)
	}
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	s.shutdown()
}
