package webhook

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/service"
	"github.com/shopspring/decimal"
)

const (
	MetadataAccountID    = "accountId"
	MetadataCreditsToAdd = "creditsToAdd"
)

// Normalizer приводит проверенное тело вебхука к domain.SettlementEvent. Для типов событий, которые не
// означают завершенную оплату, возвращает nil без ошибки. Ошибки разбора - *domain.MalformedEventError.
type Normalizer interface {
	Normalize(payload []byte) (*domain.SettlementEvent, error)
}

// metadata строгая схема метаданных платежа: accountId строка, creditsToAdd положительное целое
// (число или строка из цифр). Другие ключи игнорируются.
type metadata map[string]json.RawMessage

func (m metadata) accountID() (string, error) {
	raw, ok := m[MetadataAccountID]
	if !ok {
		return "", domain.NewMalformedEventError(MetadataAccountID, "missing")
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", domain.NewMalformedEventError(MetadataAccountID, "must be a string")
	}
	if strings.TrimSpace(id) == "" {
		return "", domain.NewMalformedEventError(MetadataAccountID, "empty")
	}
	return id, nil
}

func (m metadata) creditsToAdd() (int64, error) {
	raw, ok := m[MetadataCreditsToAdd]
	if !ok {
		return 0, domain.NewMalformedEventError(MetadataCreditsToAdd, "missing")
	}
	digits := string(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		digits = s
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, domain.NewMalformedEventError(MetadataCreditsToAdd, "must be a positive integer")
		}
	}
	credits, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || credits <= 0 {
		return 0, domain.NewMalformedEventError(MetadataCreditsToAdd, "must be a positive integer")
	}
	return credits, nil
}

func buildEvent(
	reference string,
	meta metadata,
	amount *decimal.Decimal,
	paymentType domain.PaymentType,
) (*domain.SettlementEvent, error) {
	if reference == "" {
		return nil, domain.NewMalformedEventError("id", "missing")
	}
	accountID, err := meta.accountID()
	if err != nil {
		return nil, err
	}
	credits, err := meta.creditsToAdd()
	if err != nil {
		return nil, err
	}

	settlement := service.SettlementAmount(credits)
	if amount != nil {
		settlement = *amount
	}
	event := &domain.SettlementEvent{
		ExternalReference: reference,
		AccountID:         accountID,
		CreditsToAdd:      credits,
		SettlementAmount:  settlement,
		PaymentType:       paymentType,
	}
	if err = event.Validate(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return event, nil
}

func decodeBody(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return domain.NewMalformedEventError(typeErr.Field, "unexpected type "+typeErr.Value)
		}
		return domain.NewMalformedEventError("body", "invalid json")
	}
	return nil
}
