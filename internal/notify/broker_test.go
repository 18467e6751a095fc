package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_DeliversToEverySubscriber(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	a := b.Subscribe(1)
	c := b.Subscribe(4)

	e := Event{Entity: EntityTransaction, Op: OpCreated, ID: 7}
	b.Publish(context.Background(), e)

	for _, s := range []*Subscription{a, c} {
		select {
		case got := <-s.C():
			assert.Equal(t, EntityTransaction, got.Entity)
			assert.Equal(t, OpCreated, got.Op)
			assert.EqualValues(t, 7, got.ID)
			assert.False(t, got.At.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBroker_CoalescesToNewest(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	s := b.Subscribe(1)

	for id := int64(1); id <= 5; id++ {
		b.Publish(context.Background(), Event{Entity: EntityCategory, Op: OpCreated, ID: id})
	}

	got := <-s.C()
	assert.EqualValues(t, 5, got.ID)
	select {
	case extra := <-s.C():
		t.Fatalf("unexpected extra event %+v", extra)
	default:
	}
}

func TestBroker_SubscribeQueueKeepsEveryEvent(t *testing.T) {
	b := NewBroker()
	s := b.SubscribeQueue()
	coarse := b.Subscribe(1)

	const n = 200
	for id := int64(1); id <= n; id++ {
		b.Publish(context.Background(), Event{Entity: EntityTransaction, Op: OpCreated, ID: id})
	}

	for want := int64(1); want <= n; want++ {
		select {
		case got := <-s.C():
			require.Equal(t, want, got.ID, "queued events keep publish order")
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", want)
		}
	}
	assert.EqualValues(t, n, (<-coarse.C()).ID, "plain subscribers still coalesce")

	b.Close()
	select {
	case _, ok := <-s.C():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("queued subscription not closed with the broker")
	}

	late := b.SubscribeQueue()
	_, ok := <-late.C()
	assert.False(t, ok, "subscribing to a closed broker yields a closed channel")
}

func TestSubscription_CloseQueued(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	s := b.SubscribeQueue()
	b.Publish(context.Background(), Event{Entity: EntityCategory, Op: OpDeleted, ID: 1})
	b.Publish(context.Background(), Event{Entity: EntityCategory, Op: OpDeleted, ID: 2})

	s.Close()
	s.Close()
	for range s.C() {
	}
	b.Publish(context.Background(), Event{Entity: EntityCategory, Op: OpDeleted, ID: 3})
}

func TestBroker_LastUpdated(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	assert.True(t, b.LastUpdated().IsZero())

	fixed := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }
	b.Publish(context.Background(), Event{Entity: EntityTransaction, Op: OpDeleted, ID: 1})
	assert.True(t, fixed.Equal(b.LastUpdated()))

	// Publishing without subscribers still advances the timestamp.
	later := fixed.Add(time.Minute)
	b.Publish(context.Background(), Event{Entity: EntityTransaction, Op: OpUpdated, ID: 1, At: later})
	assert.True(t, later.Equal(b.LastUpdated()))

	b.Publish(context.Background(), Event{Entity: EntityTransaction, Op: OpUpdated, ID: 1, At: fixed})
	assert.True(t, later.Equal(b.LastUpdated()), "timestamp must not go backwards")
	assert.Equal(t, uint64(3), b.Version(), "every publish advances the version")
}

func TestSubscription_Close(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	s := b.Subscribe(1)
	s.Close()
	s.Close()

	_, ok := <-s.C()
	assert.False(t, ok)

	b.Publish(context.Background(), Event{Entity: EntityCategory, Op: OpDeleted, ID: 3})
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe(1)
	b.Close()
	b.Close()

	_, ok := <-s.C()
	assert.False(t, ok)

	late := b.Subscribe(1)
	_, ok = <-late.C()
	assert.False(t, ok)
	s.Close()
}

func TestBroker_ConcurrentPublish(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	s := b.Subscribe(1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			b.Publish(context.Background(), Event{Entity: EntityTransaction, Op: OpCreated, ID: id})
		}(int64(i))
	}
	wg.Wait()

	select {
	case <-s.C():
	default:
		require.Fail(t, "expected at least one pending event")
	}
	assert.False(t, b.LastUpdated().IsZero())
	assert.Equal(t, uint64(20), b.Version())
}
