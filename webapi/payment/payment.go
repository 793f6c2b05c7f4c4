package payment

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/payflow/pkg/domain/payment"
	"github.com/amirasaad/payflow/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// MIMEApplicationNDJSON selects the streaming form of the batch lookup.
const MIMEApplicationNDJSON = "application/x-ndjson"

// streamTimeout bounds a streamed batch lookup once the handler has returned.
const streamTimeout = 30 * time.Second

// Service is the part of the payment service the handlers use.
type Service interface {
	CreatePayment(ctx context.Context, userID string) (payment.Payment, error)
	GetPayments(ctx context.Context, ids []string) <-chan payment.Payment
	GetPayment(ctx context.Context, userID string) (payment.Payment, bool, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Routes registers HTTP routes for payment operations.
func Routes(app *fiber.App, svc Service, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("handler", "payment")
	g := app.Group("/payments")
	g.Post("/", CreatePayment(svc, logger))
	g.Get("/users", GetPayments(svc, logger))
	g.Get("/ids", ListIDs(svc))
	g.Get("/:userId", GetPayment(svc))
}

// CreatePayment returns a Fiber handler that creates a payment and waits for approval.
// @Summary Create a payment
// @Description Creates a payment for the user and responds once it is approved
// @Tags payments
// @Accept json
// @Produce json
// @Param request body CreatePaymentRequest true "Payment request"
// @Success 200 {object} common.Response{data=PaymentResponse}
// @Failure 400 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails
// @Failure 504 {object} common.ProblemDetails
// @Router /payments [post]
func CreatePayment(svc Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[CreatePaymentRequest](c)
		if input == nil {
			return err
		}
		log := logger.With("user_id", input.UserID)
		log.Info("Creating payment")

		p, err := svc.CreatePayment(c.UserContext(), input.UserID)
		if err != nil {
			log.Warn("Payment creation failed", "error", err)
			return common.ProblemDetailsJSON(c, "Payment not approved", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Payment approved", ToPaymentResponse(p))
	}
}

// GetPayments returns a Fiber handler that looks up payments for several users.
// Requests accepting application/x-ndjson get one payment per line as each
// lookup completes; everyone else gets a single JSON envelope.
// @Summary Get payments by user ids
// @Description Returns the payments of the listed users; unknown users are omitted
// @Tags payments
// @Produce json
// @Produce application/x-ndjson
// @Param ids query string true "Comma separated user ids"
// @Success 200 {object} common.Response{data=[]PaymentResponse}
// @Failure 400 {object} common.ProblemDetails
// @Router /payments/users [get]
func GetPayments(svc Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ids := splitIDs(c.Query("ids"))
		if len(ids) == 0 {
			return common.ProblemDetailsJSON(
				c,
				"Missing user ids",
				errors.New("ids query parameter is required"),
				fiber.StatusBadRequest,
			)
		}

		if strings.Contains(c.Get(fiber.HeaderAccept), MIMEApplicationNDJSON) {
			c.Set(fiber.HeaderContentType, MIMEApplicationNDJSON)
			c.Status(fiber.StatusOK)
			c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
				ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
				defer cancel()
				enc := json.NewEncoder(w)
				for p := range svc.GetPayments(ctx, ids) {
					if ctx.Err() != nil {
						continue
					}
					if err := enc.Encode(ToPaymentResponse(p)); err != nil {
						logger.Debug("Client went away during stream", "error", err)
						cancel()
						continue
					}
					if err := w.Flush(); err != nil {
						logger.Debug("Client went away during stream", "error", err)
						cancel()
					}
				}
			})
			return nil
		}

		out := make([]PaymentResponse, 0, len(ids))
		for p := range svc.GetPayments(c.UserContext(), ids) {
			out = append(out, ToPaymentResponse(p))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Payments fetched successfully", out)
	}
}

// ListIDs returns a Fiber handler that lists every user id with a payment.
// @Summary List user ids
// @Description Comma separated ids of every user that has a payment
// @Tags payments
// @Produce plain
// @Success 200 {string} string "a,b,c"
// @Failure 503 {object} common.ProblemDetails
// @Router /payments/ids [get]
func ListIDs(svc Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ids, err := svc.ListIDs(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list payment ids", err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(strings.Join(ids, ","))
	}
}

// GetPayment returns a Fiber handler that fetches one user's payment.
// @Summary Get a payment
// @Tags payments
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {object} common.Response{data=PaymentResponse}
// @Failure 404 {object} common.ProblemDetails
// @Router /payments/{userId} [get]
func GetPayment(svc Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Params("userId")
		p, ok, err := svc.GetPayment(c.UserContext(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get payment", err)
		}
		if !ok {
			return common.ProblemDetailsJSON(c, "Payment not found", fiber.ErrNotFound, "no payment for user "+userID)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Payment fetched successfully", ToPaymentResponse(p))
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
