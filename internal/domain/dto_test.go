package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type DTOTestSuite struct {
	suite.Suite
}

func TestDTOSuite(t *testing.T) {
	suite.Run(t, new(DTOTestSuite))
}

func (s *DTOTestSuite) TestSettlementEventValidate() {
	valid := SettlementEvent{
		ExternalReference: "ch_1",
		AccountID:         "u1",
		CreditsToAdd:      100,
		SettlementAmount:  decimal.NewFromInt(10),
		PaymentType:       PaymentTypeCard,
	}
	with := func(fn func(e *SettlementEvent)) SettlementEvent {
		e := valid
		fn(&e)
		return e
	}

	cases := []struct {
		name      string
		event     SettlementEvent
		wantField string
	}{
		{name: "valid", event: valid},
		{name: "at maximum", event: with(func(e *SettlementEvent) { e.CreditsToAdd = MaxPurchaseCredits })},
		{name: "above maximum", event: with(func(e *SettlementEvent) { e.CreditsToAdd = MaxPurchaseCredits + 1 }),
			wantField: "creditsToAdd"},
		{name: "max int64", event: with(func(e *SettlementEvent) { e.CreditsToAdd = math.MaxInt64 }),
			wantField: "creditsToAdd"},
		{name: "zero credits", event: with(func(e *SettlementEvent) { e.CreditsToAdd = 0 }), wantField: "creditsToAdd"},
		{name: "no reference", event: with(func(e *SettlementEvent) { e.ExternalReference = "" }), wantField: "id"},
		{name: "no account", event: with(func(e *SettlementEvent) { e.AccountID = "" }), wantField: "accountId"},
		{name: "bad payment type", event: with(func(e *SettlementEvent) { e.PaymentType = "paypal" }),
			wantField: "paymentType"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			err := tc.event.Validate()
			if tc.wantField == "" {
				s.Require().NoError(err)
				return
			}
			s.Require().ErrorIs(err, ErrMalformedEvent)
			var malformed *MalformedEventError
			s.Require().ErrorAs(err, &malformed)
			s.Equal(tc.wantField, malformed.Field)
		})
	}
}

func (s *DTOTestSuite) TestChargeRequestValidate() {
	cases := []struct {
		name    string
		req     ChargeRequest
		wantErr bool
	}{
		{name: "ok", req: ChargeRequest{Credits: 50, Amount: decimal.NewFromInt(5)}},
		{name: "maximum", req: ChargeRequest{Credits: MaxPurchaseCredits, Amount: decimal.NewFromInt(100_000)}},
		{name: "above maximum", req: ChargeRequest{Credits: MaxPurchaseCredits + 1, Amount: decimal.NewFromInt(1)},
			wantErr: true},
		{name: "zero credits", req: ChargeRequest{Amount: decimal.NewFromInt(1)}, wantErr: true},
		{name: "zero amount", req: ChargeRequest{Credits: 50}, wantErr: true},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			if tc.wantErr {
				s.Require().Error(tc.req.Validate())
				return
			}
			s.Require().NoError(tc.req.Validate())
		})
	}
}
