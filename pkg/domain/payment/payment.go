package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidUserID is returned when a payment is requested without a usable user ID.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidStatusTransition is returned when a status change would move a payment backwards.
	ErrInvalidStatusTransition = errors.New("invalid payment status transition")

	// ErrUnknownStatus is returned when a status string cannot be parsed.
	ErrUnknownStatus = errors.New("unknown payment status")
)

// Status is the approval state of a payment.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a case-insensitive string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// Payment is the tracked unit of work. It is keyed by UserID in the store,
// so a user has at most one active payment at a time.
//
// Invariants:
// - A payment is always created PENDING.
// - The only legal transition is PENDING -> APPROVED; APPROVED is terminal.
type Payment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Builder provides a fluent API for constructing Payment values.
type Builder struct {
	id        string
	userID    string
	createdAt time.Time
}

// NewBuilder creates a Builder with a fresh ID and creation time.
func NewBuilder() *Builder {
	return &Builder{
		id:        uuid.New().String(),
		createdAt: time.Now().UTC(),
	}
}

// WithID overrides the generated ID.
func (b *Builder) WithID(id string) *Builder {
	b.id = id
	return b
}

// WithUserID sets the owning user. This is a mandatory field.
func (b *Builder) WithUserID(userID string) *Builder {
	b.userID = userID
	return b
}

// Build validates the builder state and returns a PENDING payment.
func (b *Builder) Build() (Payment, error) {
	userID := strings.TrimSpace(b.userID)
	if userID == "" || strings.Contains(userID, ",") {
		return Payment{}, ErrInvalidUserID
	}
	if b.id == "" {
		return Payment{}, errors.New("payment id is required")
	}
	return Payment{
		ID:        b.id,
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: b.createdAt,
		UpdatedAt: b.createdAt,
	}, nil
}

// New creates a PENDING payment with a fresh ID for the given user.
func New(userID string) (Payment, error) {
	return NewBuilder().WithUserID(userID).Build()
}

// WithStatus returns a copy of the payment carrying the new status.
// Re-applying the current status is a no-op; any move away from APPROVED is rejected.
func (p Payment) WithStatus(status Status) (Payment, error) {
	if p.Status == status {
		return p, nil
	}
	if p.Status != StatusPending || status != StatusApproved {
		return p, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, p.Status, status)
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	return p, nil
}

// IsApproved reports whether the payment reached its terminal state.
func (p Payment) IsApproved() bool {
	return p.Status == StatusApproved
}
