package amqp

import (
	"encoding/json"
	"time"

	"finances/internal/notify"
)

// ChangeMessage is the wire form of a notify.Event. Consumers re-read the
// record by id; the message never carries amounts or descriptions.
type ChangeMessage struct {
	Entity    notify.Entity `json:"entity"`
	Op        notify.Op     `json:"op"`
	ID        int64         `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewChangeMessage(e notify.Event) *ChangeMessage {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ChangeMessage{
		Entity:    e.Entity,
		Op:        e.Op,
		ID:        e.ID,
		Timestamp: ts,
	}
}

// Event converts the message back into a notify.Event.
func (m *ChangeMessage) Event() notify.Event {
	return notify.Event{Entity: m.Entity, Op: m.Op, ID: m.ID, At: m.Timestamp}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
