// Package worker turns change notifications received from the message
// broker into a stream of current records.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"finances/internal/amqp"
	"finances/internal/core"
	"finances/internal/notify"
)

var errUnknownEntity = errors.New("unknown entity")

// RecordReader loads the current state of a changed record.
type RecordReader interface {
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
}

// Change is one line of worker output. Record is nil for deletions and for
// records removed again before the message was handled.
type Change struct {
	Entity notify.Entity `json:"entity"`
	Op     notify.Op     `json:"op"`
	ID     int64         `json:"id"`
	At     time.Time     `json:"at"`
	Record any           `json:"record"`
}

// Metrics counts handled messages.
type Metrics struct {
	Handled int64 `json:"handled"`
	Missing int64 `json:"missing"`
	Failed  int64 `json:"failed"`
}

// ChangeWorker writes every change message as a JSON line carrying the
// record as it is now stored.
type ChangeWorker struct {
	records RecordReader
	mu      sync.Mutex
	enc     *json.Encoder

	handled atomic.Int64
	missing atomic.Int64
	failed  atomic.Int64
}

func NewChangeWorker(records RecordReader, out io.Writer) *ChangeWorker {
	return &ChangeWorker{
		records: records,
		enc:     json.NewEncoder(out),
	}
}

// HandleChangeMessage resolves msg against the store and emits it. Returning
// an error asks the broker to redeliver the message.
func (w *ChangeWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.DebugContext(ctx, "Processing change message",
		"entity", msg.Entity,
		"op", msg.Op,
		"id", msg.ID)

	change := Change{Entity: msg.Entity, Op: msg.Op, ID: msg.ID, At: msg.Timestamp}
	if msg.Op != notify.OpDeleted {
		record, err := w.load(ctx, msg.Entity, msg.ID)
		switch {
		case errors.Is(err, errUnknownEntity):
			w.failed.Add(1)
			slog.WarnContext(ctx, "Dropping change for unknown entity",
				"entity", msg.Entity,
				"id", msg.ID)
			return nil
		case errors.Is(err, core.ErrCategoryNotFound), errors.Is(err, core.ErrTransactionNotFound):
			w.missing.Add(1)
			slog.InfoContext(ctx, "Changed record no longer exists",
				"entity", msg.Entity,
				"id", msg.ID)
		case err != nil:
			w.failed.Add(1)
			return fmt.Errorf("load %s %d: %w", msg.Entity, msg.ID, err)
		default:
			change.Record = record
		}
	}

	w.mu.Lock()
	err := w.enc.Encode(change)
	w.mu.Unlock()
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("write change: %w", err)
	}
	w.handled.Add(1)
	return nil
}

func (w *ChangeWorker) load(ctx context.Context, entity notify.Entity, id int64) (any, error) {
	switch entity {
	case notify.EntityCategory:
		return w.records.GetCategory(ctx, id)
	case notify.EntityTransaction:
		return w.records.GetTransaction(ctx, id)
	default:
		return nil, fmt.Errorf("%w %q", errUnknownEntity, entity)
	}
}

func (w *ChangeWorker) GetMetrics() Metrics {
	return Metrics{
		Handled: w.handled.Load(),
		Missing: w.missing.Load(),
		Failed:  w.failed.Load(),
	}
}
