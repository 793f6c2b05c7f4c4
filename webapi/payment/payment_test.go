package payment_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/amirasaad/payflow/pkg/domain/payment"
	paymentweb "github.com/amirasaad/payflow/webapi/payment"
	"github.com/amirasaad/payflow/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type PaymentTestSuite struct {
	testutils.APITestSuite
}

func (s *PaymentTestSuite) seed(userIDs ...string) {
	for _, id := range userIDs {
		_, err := s.App.Deps.Repository.Create(context.Background(), id)
		s.Require().NoError(err)
	}
}

func (s *PaymentTestSuite) decode(body io.Reader, v any) {
	var env envelope
	s.Require().NoError(json.NewDecoder(body).Decode(&env))
	s.Require().NoError(json.Unmarshal(env.Data, v))
}

func (s *PaymentTestSuite) TestCreatePayment() {
	resp := s.MakeRequest(fiber.MethodPost, "/payments", `{"userId":"user-1"}`, "")
	defer resp.Body.Close() //nolint:errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)

	var p paymentweb.PaymentResponse
	s.decode(resp.Body, &p)
	s.Equal("user-1", p.UserID)
	s.Equal(payment.StatusApproved.String(), p.Status)
	s.NotEmpty(p.ID)
}

func (s *PaymentTestSuite) TestCreatePaymentVariants() {
	testCases := []struct {
		desc       string
		body       string
		wantStatus int
	}{
		{desc: "malformed body", body: `{"userId":`, wantStatus: fiber.StatusBadRequest},
		{desc: "missing user", body: `{}`, wantStatus: fiber.StatusBadRequest},
		{desc: "blank user", body: `{"userId":"   "}`, wantStatus: fiber.StatusBadRequest},
		{desc: "comma in user", body: `{"userId":"a,b"}`, wantStatus: fiber.StatusBadRequest},
	}
	for _, tc := range testCases {
		s.Run(tc.desc, func() {
			resp := s.MakeRequest(fiber.MethodPost, "/payments", tc.body, "")
			defer resp.Body.Close() //nolint:errcheck
			s.Equal(tc.wantStatus, resp.StatusCode)
			s.Equal("application/problem+json", resp.Header.Get(fiber.HeaderContentType))
		})
	}
}

func (s *PaymentTestSuite) TestGetPayments() {
	s.seed("A", "C")

	resp := s.MakeRequest(fiber.MethodGet, "/payments/users?ids=A,B,C", "", "")
	defer resp.Body.Close() //nolint:errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)

	var got []paymentweb.PaymentResponse
	s.decode(resp.Body, &got)
	users := make([]string, 0, len(got))
	for _, p := range got {
		users = append(users, p.UserID)
	}
	sort.Strings(users)
	s.Equal([]string{"A", "C"}, users)
}

func (s *PaymentTestSuite) TestGetPaymentsStream() {
	s.seed("A", "C")

	resp := s.MakeRequest(fiber.MethodGet, "/payments/users?ids=A,B,C", "", paymentweb.MIMEApplicationNDJSON)
	defer resp.Body.Close() //nolint:errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal(paymentweb.MIMEApplicationNDJSON, resp.Header.Get(fiber.HeaderContentType))

	var users []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var p paymentweb.PaymentResponse
		s.Require().NoError(json.Unmarshal(scanner.Bytes(), &p))
		users = append(users, p.UserID)
	}
	s.Require().NoError(scanner.Err())
	sort.Strings(users)
	s.Equal([]string{"A", "C"}, users)
}

func (s *PaymentTestSuite) TestGetPaymentsRequiresIDs() {
	for _, path := range []string{"/payments/users", "/payments/users?ids=", "/payments/users?ids=,,"} {
		resp := s.MakeRequest(fiber.MethodGet, path, "", "")
		s.Equal(fiber.StatusBadRequest, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}

func (s *PaymentTestSuite) TestListIDs() {
	resp := s.MakeRequest(fiber.MethodGet, "/payments/ids", "", "")
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	s.Require().NoError(err)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	s.Empty(string(body))

	s.seed("c", "a", "b")
	resp = s.MakeRequest(fiber.MethodGet, "/payments/ids", "", "")
	defer resp.Body.Close() //nolint:errcheck
	body, err = io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal(fiber.MIMETextPlainCharsetUTF8, resp.Header.Get(fiber.HeaderContentType))
	s.Equal("a,b,c", string(body))
}

func (s *PaymentTestSuite) TestGetPayment() {
	s.seed("A")

	resp := s.MakeRequest(fiber.MethodGet, "/payments/A", "", "")
	defer resp.Body.Close() //nolint:errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var p paymentweb.PaymentResponse
	s.decode(resp.Body, &p)
	s.Equal("A", p.UserID)
	s.Equal(payment.StatusPending.String(), p.Status)

	missing := s.MakeRequest(fiber.MethodGet, "/payments/nobody", "", "")
	defer missing.Body.Close() //nolint:errcheck
	s.Equal(fiber.StatusNotFound, missing.StatusCode)
}

func TestPaymentTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentTestSuite))
}

// TimeoutTestSuite runs with an approval delay longer than the attempt deadline.
type TimeoutTestSuite struct {
	testutils.APITestSuite
}

func (s *TimeoutTestSuite) SetupTest() {
	s.Cfg = testutils.TestConfig()
	s.Cfg.Payment.AttemptTimeout = 20 * time.Millisecond
	s.Cfg.Listener.ApprovalDelay = 300 * time.Millisecond
	s.APITestSuite.SetupTest()
}

func (s *TimeoutTestSuite) TestCreatePaymentTimesOut() {
	resp := s.MakeRequest(fiber.MethodPost, "/payments", `{"userId":"slow"}`, "")
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(fiber.StatusGatewayTimeout, resp.StatusCode)
	s.Equal("application/problem+json", resp.Header.Get(fiber.HeaderContentType))
}

func TestTimeoutTestSuite(t *testing.T) {
	suite.Run(t, new(TimeoutTestSuite))
}
