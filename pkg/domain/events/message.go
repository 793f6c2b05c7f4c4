package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is a payment-change notification carried by the event channel.
// Key is the user ID the event concerns; Payload is an opaque serialized
// snapshot of the payment at publication time.
type Message struct {
	Key       string    `json:"key"`
	Type      EventType `json:"type"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds a message stamped with the current time.
func NewMessage(eventType EventType, key string, payload []byte) Message {
	return Message{
		Key:       key,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Encode serializes the message into the envelope used by broker-backed channels.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// Decode parses an envelope produced by Encode.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if m.Key == "" {
		return Message{}, fmt.Errorf("decode message: missing key")
	}
	return m, nil
}
