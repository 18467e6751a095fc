package amqp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finances/internal/notify"
)

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []notify.Event
	want     int // done closes once this many events went through; 0 means 1
	done     chan struct{}
}

func (f *fakePublisher) PublishChange(_ context.Context, e notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("connection refused")
	}
	f.got = append(f.got, e)
	if f.done != nil && len(f.got) >= max(f.want, 1) {
		close(f.done)
		f.done = nil
	}
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestForwarder_RelaysEvents(t *testing.T) {
	broker := notify.NewBroker()
	pub := &fakePublisher{failures: 2, done: make(chan struct{})}
	done := pub.done

	f := NewForwarder(pub, broker)
	f.sleep = noSleep

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()

	broker.Publish(ctx, notify.Event{Entity: notify.EntityTransaction, Op: notify.OpCreated, ID: 42})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not forwarded")
	}

	broker.Close()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() after broker close = %v, want nil", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.calls != 3 {
		t.Errorf("publish calls = %d, want 3 (two failures then success)", pub.calls)
	}
	if len(pub.got) != 1 || pub.got[0].ID != 42 {
		t.Errorf("forwarded = %+v, want event 42", pub.got)
	}
}

func TestForwarder_KeepsEventsPublishedDuringRetries(t *testing.T) {
	broker := notify.NewBroker()
	defer broker.Close()

	const total = 150
	pub := &fakePublisher{failures: 1, want: total, done: make(chan struct{})}
	done := pub.done

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := NewForwarder(pub, broker)
	var once sync.Once
	f.sleep = func(context.Context, time.Duration) error {
		// a burst of writes lands while the first event is being retried
		once.Do(func() {
			for id := int64(2); id <= total; id++ {
				broker.Publish(ctx, notify.Event{Entity: notify.EntityTransaction, Op: notify.OpUpdated, ID: id})
			}
		})
		return nil
	}

	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()
	broker.Publish(ctx, notify.Event{Entity: notify.EntityTransaction, Op: notify.OpCreated, ID: 1})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every event was forwarded")
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.got) != total {
		t.Fatalf("forwarded %d events, want %d", len(pub.got), total)
	}
	for i, e := range pub.got {
		if e.ID != int64(i+1) {
			t.Fatalf("event %d has id %d, want %d", i, e.ID, i+1)
		}
	}
}

func TestForwarder_GivesUpAfterRetries(t *testing.T) {
	broker := notify.NewBroker()
	pub := &fakePublisher{failures: 100}

	f := NewForwarder(pub, broker)
	f.sleep = noSleep
	f.maxRetries = 2

	err := f.forward(context.Background(), notify.Event{Entity: notify.EntityCategory, Op: notify.OpDeleted, ID: 1})
	if err == nil {
		t.Fatal("forward should fail when every publish fails")
	}
	if pub.calls != 3 {
		t.Errorf("publish calls = %d, want 3", pub.calls)
	}
	broker.Close()
}

func TestForwarder_StopsOnCancel(t *testing.T) {
	broker := notify.NewBroker()
	defer broker.Close()

	f := NewForwarder(&fakePublisher{}, broker)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
}
