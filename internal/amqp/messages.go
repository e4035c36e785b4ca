package amqp

import (
	"encoding/json"
	"time"
)

// Expense event kinds carried on the queue.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// ExpenseEventMessage is a lightweight change notification. It carries only
// identifiers and the affected month; consumers fetch whatever else they need
// from the database.
type ExpenseEventMessage struct {
	Event     string    `json:"event"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEventMessage builds an event for the given expense and the month
// its date falls in.
func NewExpenseEventMessage(event, id, ownerID string, year, month int) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Event:     event,
		ID:        id,
		OwnerID:   ownerID,
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON creates a message from JSON bytes
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
