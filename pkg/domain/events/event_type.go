package events

// EventType represents the type of an event in the system.
type EventType string

// Event type constants
const (
	// Payment events
	EventTypePaymentCreated EventType = "Payment.Created"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}
