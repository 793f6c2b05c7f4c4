// Package webapi provides the HTTP surface of the payment service.
// Sub-packages:
// - payment: payment creation and lookup endpoints
// - common: response envelopes, problem details and request validation
package webapi

import (
	"errors"
	"strings"
	"time"

	_ "github.com/amirasaad/payflow/docs"
	"github.com/amirasaad/payflow/pkg/app"
	"github.com/amirasaad/payflow/pkg/listener"
	"github.com/amirasaad/payflow/pkg/metrics"
	"github.com/amirasaad/payflow/webapi/common"
	paymentweb "github.com/amirasaad/payflow/webapi/payment"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		AppName: "payflow",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(requestid.New())
	fiberApp.Use(metricsMiddleware(a.Deps.Metrics))

	if rl := a.Config.RateLimit; rl != nil && rl.MaxRequests > 0 {
		// Uses X-Forwarded-For header when behind a proxy
		fiberApp.Use(limiter.New(limiter.Config{
			Max:        rl.MaxRequests,
			Expiration: rl.Window,
			KeyGenerator: func(c *fiber.Ctx) string {
				if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
					if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
						return strings.TrimSpace(forwardedFor[:commaIndex])
					}
					return strings.TrimSpace(forwardedFor)
				}
				if realIP := c.Get("X-Real-IP"); realIP != "" {
					return realIP
				}
				return c.IP()
			},
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/health" || c.Path() == "/metrics"
			},
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}

	fiberApp.Get("/swagger/*", swagger.HandlerDefault)
	if a.Deps.Metrics != nil {
		fiberApp.Get("/metrics", adaptor.HTTPHandler(
			promhttp.HandlerFor(a.Deps.Metrics.Registry, promhttp.HandlerOpts{}),
		))
	}
	fiberApp.Get("/health", Health(a.Listener))

	paymentweb.Routes(fiberApp, a.PaymentService, a.Deps.Logger)
	return fiberApp
}

// Health reports liveness together with the approval listener state.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} common.Response
// @Failure 503 {object} common.ProblemDetails
// @Router /health [get]
func Health(l *listener.ApprovalListener) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := l.State()
		if state == listener.StateStopped {
			err := l.Err()
			if err == nil {
				err = errors.New("approval listener stopped")
			}
			return common.ProblemDetailsJSON(c, "Service Unavailable", err, fiber.StatusServiceUnavailable)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "ok", fiber.Map{"listener": state.String()})
	}
}

func metricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = common.ErrorToStatusCode(err)
		}
		path := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			path = r.Path
		}
		m.ObserveHTTP(c.Method(), path, status, time.Since(start))
		return err
	}
}
