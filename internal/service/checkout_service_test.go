package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/service/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type CheckoutServiceTestSuite struct {
	suite.Suite
	store       *memUOW
	mockCard    *mocks.MockChargeCreator
	mockCrypto  *mocks.MockChargeCreator
	checkoutSvc *CheckoutService
}

func TestCheckoutServiceSuite(t *testing.T) {
	suite.Run(t, new(CheckoutServiceTestSuite))
}

func (s *CheckoutServiceTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	s.mockCard = mocks.NewMockChargeCreator(mockCtrl)
	s.mockCrypto = mocks.NewMockChargeCreator(mockCtrl)
	s.store = newMemUOW()
	s.store.seedAccount("u1", 0)

	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	checkoutSvc, err := NewCheckoutService(s.store, map[domain.PaymentType]ChargeCreator{
		domain.PaymentTypeCard:   s.mockCard,
		domain.PaymentTypeCrypto: s.mockCrypto,
	}, CheckoutURLs{
		SuccessURL: "https://app.example/purchase/success",
		CancelURL:  "https://app.example/purchase",
	}, l)
	s.Require().NoError(err)
	s.checkoutSvc = checkoutSvc
}

func (s *CheckoutServiceTestSuite) TestInitiate() {
	s.mockCard.EXPECT().
		CreateCharge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
			s.Equal("u1", req.AccountID)
			s.Equal(int64(120), req.Credits)
			s.True(decimal.RequireFromString("12").Equal(req.Amount))
			s.Equal("https://app.example/purchase/success", req.SuccessURL)
			s.Equal("https://app.example/purchase", req.CancelURL)
			return &domain.Charge{ID: "cs_test_1", RedirectURL: "https://checkout.example/cs_test_1"}, nil
		})

	res, err := s.checkoutSvc.Initiate(s.T().Context(), CheckoutArgs{
		AccountID:        "u1",
		CreditsRequested: 120,
		PaymentType:      domain.PaymentTypeCard,
	})
	s.Require().NoError(err)
	s.Equal("https://checkout.example/cs_test_1", res.RedirectURL)
	s.Equal("cs_test_1", res.ExternalReference)

	snap := s.store.snapshot()
	s.Require().Len(snap.transactions, 1)
	for _, tx := range snap.transactions {
		s.Equal(domain.TransactionStatusPending, tx.Status)
		s.Equal("cs_test_1", tx.ExternalReference)
		s.Equal(int64(120), tx.Credits)
		s.Equal(domain.PaymentTypeCard, tx.PaymentType)
		s.True(decimal.NewFromInt(12).Equal(tx.Amount))
	}
	// создание платежа ничего не начисляет.
	s.Equal(int64(0), snap.accounts["u1"].CreditBalance)
}

func (s *CheckoutServiceTestSuite) TestInitiateRejectsBeforeProcessorCall() {
	s.mockCard.EXPECT().CreateCharge(gomock.Any(), gomock.Any()).Times(0)
	s.mockCrypto.EXPECT().CreateCharge(gomock.Any(), gomock.Any()).Times(0)

	cases := []struct {
		name string
		args CheckoutArgs
	}{
		{name: "below minimum", args: CheckoutArgs{AccountID: "u1", CreditsRequested: 10, PaymentType: domain.PaymentTypeCard}},
		{name: "just below minimum", args: CheckoutArgs{AccountID: "u1", CreditsRequested: 49, PaymentType: domain.PaymentTypeCrypto}},
		{name: "above maximum", args: CheckoutArgs{AccountID: "u1", CreditsRequested: MaxCheckoutCredits + 1,
			PaymentType: domain.PaymentTypeCard}},
		{name: "amount overflows", args: CheckoutArgs{AccountID: "u1", CreditsRequested: math.MaxInt64,
			PaymentType: domain.PaymentTypeCard}},
		{name: "negative", args: CheckoutArgs{AccountID: "u1", CreditsRequested: -100, PaymentType: domain.PaymentTypeCard}},
		{name: "unknown payment type", args: CheckoutArgs{AccountID: "u1", CreditsRequested: 100, PaymentType: "paypal"}},
		{name: "no account", args: CheckoutArgs{CreditsRequested: 100, PaymentType: domain.PaymentTypeCard}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			res, err := s.checkoutSvc.Initiate(s.T().Context(), tc.args)
			s.Require().ErrorIs(err, domain.ErrInvalidCheckout)
			s.True(IsValidationError(err))
			s.Nil(res)
		})
	}
	s.Empty(s.store.snapshot().transactions)
}

func (s *CheckoutServiceTestSuite) TestInitiateMaximum() {
	s.mockCard.EXPECT().
		CreateCharge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
			s.Equal(MaxCheckoutCredits, req.Credits)
			s.Require().NoError(req.Validate())
			return &domain.Charge{ID: "cs_max", RedirectURL: "https://checkout.example/cs_max"}, nil
		})

	res, err := s.checkoutSvc.Initiate(s.T().Context(), CheckoutArgs{
		AccountID:        "u1",
		CreditsRequested: MaxCheckoutCredits,
		PaymentType:      domain.PaymentTypeCard,
	})
	s.Require().NoError(err)
	s.Equal("cs_max", res.ExternalReference)
}

func (s *CheckoutServiceTestSuite) TestInitiateProcessorFailure() {
	s.mockCrypto.EXPECT().
		CreateCharge(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("503 service unavailable"))

	res, err := s.checkoutSvc.Initiate(s.T().Context(), CheckoutArgs{
		AccountID:        "u1",
		CreditsRequested: 50,
		PaymentType:      domain.PaymentTypeCrypto,
	})
	s.Require().ErrorIs(err, domain.ErrProcessorUnavailable)
	s.False(IsValidationError(err))
	s.Nil(res)
	s.Empty(s.store.snapshot().transactions)
}

func (s *CheckoutServiceTestSuite) TestSettlementAmount() {
	cases := []struct {
		credits int64
		want    string
	}{
		{credits: 50, want: "5"},
		{credits: 55, want: "5.5"},
		{credits: 1234, want: "123.4"},
	}
	for _, tc := range cases {
		s.True(decimal.RequireFromString(tc.want).Equal(SettlementAmount(tc.credits)), "credits %d", tc.credits)
	}
}
