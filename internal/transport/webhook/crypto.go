package webhook

import (
	"encoding/json"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	CryptoSignatureHeader = "X-CC-Webhook-Signature"

	cryptoEventConfirmed = "charge:confirmed"
	cryptoEventResolved  = "charge:resolved"
)

type cryptoEventBody struct {
	Type string `json:"type"`
	Data struct {
		ID       string   `json:"id"`
		Metadata metadata `json:"metadata"`
		Pricing  struct {
			Local struct {
				Amount string `json:"amount"`
			} `json:"local"`
		} `json:"pricing"`
	} `json:"data"`
}

// cryptoEnvelope процессор присылает событие либо в поле event, либо на верхнем уровне.
type cryptoEnvelope struct {
	cryptoEventBody
	Event *json.RawMessage `json:"event"`
}

// CryptoNormalizer события крипто процессора. Проводятся charge:confirmed и charge:resolved.
type CryptoNormalizer struct{}

func (CryptoNormalizer) Normalize(payload []byte) (*domain.SettlementEvent, error) {
	var env cryptoEnvelope
	if err := decodeBody(payload, &env); err != nil {
		return nil, err
	}
	ev := env.cryptoEventBody
	if env.Event != nil {
		ev = cryptoEventBody{}
		if err := decodeBody(*env.Event, &ev); err != nil {
			return nil, err
		}
	}

	if ev.Type != cryptoEventConfirmed && ev.Type != cryptoEventResolved {
		return nil, nil //nolint:nilnil
	}

	var amount *decimal.Decimal
	if ev.Data.Pricing.Local.Amount != "" {
		a, err := decimal.NewFromString(ev.Data.Pricing.Local.Amount)
		if err != nil {
			return nil, domain.NewMalformedEventError("pricing.local.amount", "not a decimal")
		}
		amount = &a
	}
	return buildEvent(ev.Data.ID, ev.Data.Metadata, amount, domain.PaymentTypeCrypto)
}
