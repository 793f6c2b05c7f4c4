package testutils

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/amirasaad/payflow/infra/eventbus"
	repository "github.com/amirasaad/payflow/infra/repository/payment"
	"github.com/amirasaad/payflow/pkg/app"
	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/metrics"
	"github.com/amirasaad/payflow/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

// TestConfig returns a configuration scaled down to milliseconds.
func TestConfig() *config.App {
	return &config.App{
		Env:    "test",
		Server: &config.Server{Scheme: "http", Host: "localhost", Port: 0},
		Log:    &config.Log{Format: "text"},
		RateLimit: &config.RateLimit{
			MaxRequests: 1000,
			Window:      time.Second,
		},
		Payment: &config.Payment{
			PollInterval:   5 * time.Millisecond,
			AttemptTimeout: 200 * time.Millisecond,
			MaxRetries:     1,
			BackoffBase:    time.Millisecond,
			BackoffMax:     10 * time.Millisecond,
			LookupParallel: 4,
		},
		Listener: &config.Listener{ApprovalDelay: 10 * time.Millisecond},
		Store:    &config.Store{Workers: 8},
		EventBus: &config.EventBus{Driver: "memory", BufferSize: 64},
	}
}

// APITestSuite runs handlers against a fully wired in-memory application.
type APITestSuite struct {
	suite.Suite
	Cfg      *config.App
	App      *app.App
	FiberApp *fiber.App
}

func (s *APITestSuite) SetupTest() {
	if s.Cfg == nil {
		s.Cfg = TestConfig()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := &app.Deps{
		Repository: repository.NewMemoryRepository(repository.Options{Workers: s.Cfg.Store.Workers}, logger),
		Channel:    eventbus.NewWithMemory(s.Cfg.EventBus.BufferSize, logger),
		Metrics:    metrics.New(),
		Logger:     logger,
	}
	a, err := app.New(deps, s.Cfg)
	s.Require().NoError(err)
	s.App = a
	s.FiberApp = webapi.SetupApp(a)
}

func (s *APITestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.App.Shutdown(ctx)
}

// MakeRequest sends a request through the in-memory Fiber app.
func (s *APITestSuite) MakeRequest(method, path, body, accept string) *http.Response {
	resp, err := MakeRequestWithApp(s.FiberApp, method, path, body, accept)
	s.Require().NoError(err)
	return resp
}

// MakeRequestWithApp is a helper function to make HTTP requests in tests.
func MakeRequestWithApp(app *fiber.App, method, path, body, accept string) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if accept != "" {
		req.Header.Set(fiber.HeaderAccept, accept)
	}
	return app.Test(req, 5000)
}
