package amqp

import (
	"encoding/json"
	"time"
)

// StoreChangeMessage announces that the transaction store changed. It carries
// only the kind of change and how many transactions were affected; consumers
// fetch whatever state they need themselves.
type StoreChangeMessage struct {
	Kind      string    `json:"kind"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStoreChangeMessage creates a change message stamped with the current time
func NewStoreChangeMessage(kind string, count int) *StoreChangeMessage {
	return &StoreChangeMessage{
		Kind:      kind,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StoreChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StoreChangeMessageFromJSON creates a message from JSON bytes
func StoreChangeMessageFromJSON(data []byte) (*StoreChangeMessage, error) {
	var msg StoreChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
