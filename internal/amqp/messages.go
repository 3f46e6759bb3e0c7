package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event operations.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
	OpResync  = "resync"
)

// ExpenseEvent announces a change to the expenses table. It carries only
// identifiers; consumers read current rows from the database.
type ExpenseEvent struct {
	Op        string    `json:"op"`
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEvent(op string, id int64, username string) *ExpenseEvent {
	return &ExpenseEvent{
		Op:        op,
		ID:        id,
		Username:  username,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and validates a message body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Op {
	case OpCreated, OpUpdated, OpDeleted, OpResync:
	default:
		return nil, fmt.Errorf("unknown event op %q", msg.Op)
	}
	return &msg, nil
}
