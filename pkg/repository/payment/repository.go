package payment

import (
	"context"
	"errors"

	"github.com/amirasaad/payflow/pkg/domain/payment"
)

// ErrStoreUnavailable is returned when a store operation could not run before
// the caller's context ended.
var ErrStoreUnavailable = errors.New("payment store unavailable")

// Repository is the keyed store of payment records. The key is the user ID,
// so each user holds a single slot and a new Create overwrites the previous one.
//
// Absence is not an error: lookups report it through the boolean result. The
// error result is reserved for context cancellation and store unavailability.
type Repository interface {
	// Create stores a fresh PENDING payment for userID, replacing any prior record.
	Create(ctx context.Context, userID string) (payment.Payment, error)
	// Get returns the current record for userID.
	Get(ctx context.Context, userID string) (payment.Payment, bool, error)
	// UpdateStatus replaces the record for userID with a copy carrying status.
	UpdateStatus(ctx context.Context, userID string, status payment.Status) (payment.Payment, bool, error)
	// Keys returns every known user ID in ascending order.
	Keys(ctx context.Context) ([]string, error)
}
