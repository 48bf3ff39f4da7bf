package card

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/transport/processor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
	server *httptest.Server
	client *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	s.client = New(s.server.URL+"/", "sk_test")
}

func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientTestSuite) handle(w http.ResponseWriter, r *http.Request) {
	s.Equal("Bearer sk_test", r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == RouteSessions:
		s.Require().NoError(r.ParseForm())
		if r.PostForm.Get("metadata[accountId]") == "broken" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.Equal("payment", r.PostForm.Get("mode"))
		s.Equal("1250", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		s.Equal("u1", r.PostForm.Get("metadata[accountId]"))
		s.Equal("125", r.PostForm.Get("metadata[creditsToAdd]"))
		s.Equal("https://app.example/ok?session_id={CHECKOUT_SESSION_ID}", r.PostForm.Get("success_url"))
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.example/c/cs_test_1"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/checkout/sessions/cs_paid":
		_, _ = w.Write([]byte(`{"id":"cs_paid","status":"complete","payment_status":"paid"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/checkout/sessions/cs_expired":
		_, _ = w.Write([]byte(`{"id":"cs_expired","status":"expired","payment_status":"unpaid"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/checkout/sessions/cs_open":
		_, _ = w.Write([]byte(`{"id":"cs_open","status":"open","payment_status":"unpaid"}`))
	case r.URL.Path == "/v1/checkout/sessions/cs_busy":
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *ClientTestSuite) TestCreateCharge() {
	charge, err := s.client.CreateCharge(s.T().Context(), domain.ChargeRequest{
		AccountID:  "u1",
		Credits:    125,
		Amount:     decimal.RequireFromString("12.5"),
		SuccessURL: "https://app.example/ok",
		CancelURL:  "https://app.example/cancel",
	})
	s.Require().NoError(err)
	s.Equal("cs_test_1", charge.ID)
	s.Equal("https://checkout.example/c/cs_test_1", charge.RedirectURL)

	_, err = s.client.CreateCharge(s.T().Context(), domain.ChargeRequest{
		AccountID: "broken",
		Credits:   50,
		Amount:    decimal.NewFromInt(5),
	})
	var statusErr *processor.StatusCodeError
	s.Require().ErrorAs(err, &statusErr)
	s.Equal(http.StatusBadRequest, statusErr.Code)
}

func (s *ClientTestSuite) TestCreateChargeRejectsOutOfRange() {
	cases := []struct {
		name string
		req  domain.ChargeRequest
	}{
		{name: "credits overflow amount", req: domain.ChargeRequest{
			AccountID: "u1", Credits: math.MaxInt64, Amount: decimal.New(math.MaxInt64, -1),
		}},
		{name: "above maximum", req: domain.ChargeRequest{
			AccountID: "u1", Credits: domain.MaxPurchaseCredits + 1, Amount: decimal.NewFromInt(100_001),
		}},
		{name: "zero amount", req: domain.ChargeRequest{AccountID: "u1", Credits: 50}},
		{name: "negative amount", req: domain.ChargeRequest{
			AccountID: "u1", Credits: 50, Amount: decimal.NewFromInt(-5),
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			charge, err := s.client.CreateCharge(s.T().Context(), tc.req)
			s.Require().Error(err)
			s.Nil(charge)
			// запрос до процессора не дошел.
			var statusErr *processor.StatusCodeError
			s.False(errors.As(err, &statusErr))
		})
	}
}

func (s *ClientTestSuite) TestChargeState() {
	cases := []struct {
		id        string
		wantState domain.ChargeState
		wantErr   any
	}{
		{id: "cs_paid", wantState: domain.ChargeStatePaid},
		{id: "cs_expired", wantState: domain.ChargeStateExpired},
		{id: "cs_open", wantState: domain.ChargeStatePending},
		{id: "cs_busy", wantErr: new(*processor.TooManyRequestError)},
		{id: "cs_missing", wantErr: new(*processor.StatusCodeError)},
	}
	for _, tc := range cases {
		s.Run(tc.id, func() {
			state, err := s.client.ChargeState(s.T().Context(), tc.id)
			if tc.wantErr != nil {
				s.Require().ErrorAs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.wantState, state)
		})
	}
}
