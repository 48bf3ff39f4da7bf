package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxPurchaseCredits верхняя граница кредитов в одной покупке. Сумма такой покупки укладывается в
// transactions.amount NUMERIC(12,2), в центах - в int64.
const MaxPurchaseCredits int64 = 1_000_000

type PaymentType string

const (
	PaymentTypeCard   PaymentType = "card"
	PaymentTypeCrypto PaymentType = "crypto"
)

func (p PaymentType) Valid() bool {
	return p == PaymentTypeCard || p == PaymentTypeCrypto
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Terminal возвращает true для статусов, из которых переход невозможен.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusConfirmed || s == TransactionStatusFailed
}

// SettlementEvent нормализованное событие платежного процессора, на основании которого пополняется баланс.
type SettlementEvent struct {
	ExternalReference string
	AccountID         string
	CreditsToAdd      int64
	SettlementAmount  decimal.Decimal
	PaymentType       PaymentType
}

// Validate проверяет обязательные поля события. Возвращает *MalformedEventError.
func (e SettlementEvent) Validate() error {
	switch {
	case e.ExternalReference == "":
		return NewMalformedEventError("id", "empty external reference")
	case e.AccountID == "":
		return NewMalformedEventError("accountId", "missing")
	case e.CreditsToAdd <= 0:
		return NewMalformedEventError("creditsToAdd", "must be a positive integer")
	case e.CreditsToAdd > MaxPurchaseCredits:
		return NewMalformedEventError("creditsToAdd", fmt.Sprintf("exceeds %d", MaxPurchaseCredits))
	case !e.PaymentType.Valid():
		return NewMalformedEventError("paymentType", "unsupported payment type "+string(e.PaymentType))
	}
	return nil
}

// ChargeRequest параметры создания платежа во внешнем процессоре.
type ChargeRequest struct {
	AccountID  string
	Credits    int64
	Amount     decimal.Decimal
	SuccessURL string
	CancelURL  string
}

// Validate проверяет запрос перед отправкой процессору.
func (r ChargeRequest) Validate() error {
	if r.Credits <= 0 || r.Credits > MaxPurchaseCredits {
		return fmt.Errorf("credits %d out of range 1..%d", r.Credits, MaxPurchaseCredits)
	}
	if !r.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// Charge ответ процессора: его идентификатор платежа и адрес страницы оплаты.
type Charge struct {
	ID          string
	RedirectURL string
}

type ChargeState string

const (
	ChargeStatePending ChargeState = "pending"
	ChargeStatePaid    ChargeState = "paid"
	ChargeStateExpired ChargeState = "expired"
)
