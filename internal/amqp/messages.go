package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"budget/internal/events"
)

// ChangeMessage is the wire form of an events.Change. It carries no row
// data: consumers read the store themselves.
type ChangeMessage struct {
	ID        string       `json:"id"`
	Table     events.Table `json:"table"`
	Op        events.Op    `json:"op"`
	Version   int64        `json:"version"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewChangeMessage creates a message for a committed change.
func NewChangeMessage(c events.Change) *ChangeMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChangeMessage{
		ID:        uuid.NewString(),
		Table:     c.Table,
		Op:        c.Op,
		Version:   c.Version,
		Timestamp: ts,
	}
}

// Change converts the message back into an events.Change.
func (m *ChangeMessage) Change() events.Change {
	return events.Change{Table: m.Table, Op: m.Op, Version: m.Version, At: m.Timestamp}
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
