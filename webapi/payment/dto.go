package payment

import (
	"time"

	"github.com/amirasaad/payflow/pkg/domain/payment"
)

// CreatePaymentRequest is the body of POST /payments.
type CreatePaymentRequest struct {
	UserID string `json:"userId" validate:"required,excludesall=0x2C"`
}

// PaymentResponse is the wire form of a payment.
type PaymentResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ToPaymentResponse(p payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		Status:    p.Status.String(),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
