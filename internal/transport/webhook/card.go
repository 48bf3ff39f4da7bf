package webhook

import (
	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	CardSignatureHeader = "Stripe-Signature"

	cardEventSessionCompleted    = "checkout.session.completed"
	cardEventAsyncPaymentSuccess = "checkout.session.async_payment_succeeded"
	cardPaymentStatusPaid        = "paid"
)

type cardEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string   `json:"id"`
			PaymentStatus string   `json:"payment_status"`
			AmountTotal   *int64   `json:"amount_total"`
			Metadata      metadata `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// CardNormalizer события checkout-сессий карточного процессора. Сумма приходит в центах.
type CardNormalizer struct{}

func (CardNormalizer) Normalize(payload []byte) (*domain.SettlementEvent, error) {
	var ev cardEvent
	if err := decodeBody(payload, &ev); err != nil {
		return nil, err
	}

	session := ev.Data.Object
	switch ev.Type {
	case cardEventSessionCompleted:
		// асинхронные методы оплаты присылают completed до фактического списания.
		if session.PaymentStatus != cardPaymentStatusPaid {
			return nil, nil //nolint:nilnil
		}
	case cardEventAsyncPaymentSuccess:
	default:
		return nil, nil //nolint:nilnil
	}

	var amount *decimal.Decimal
	if session.AmountTotal != nil {
		a := decimal.New(*session.AmountTotal, -2)
		amount = &a
	}
	return buildEvent(session.ID, session.Metadata, amount, domain.PaymentTypeCard)
}
