package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID                   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Username             string
	Password             string
	CreditBalance        int64
	ReferredByReferralID *string
}

// Transaction запись журнала об одной попытке пополнения. Ровно одна запись на ExternalReference.
type Transaction struct {
	ID                string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	AccountID         string
	Amount            decimal.Decimal
	Credits           int64
	PaymentType       PaymentType
	ExternalReference string
	Status            TransactionStatus
}

type Referral struct {
	ID             string
	CreatedAt      time.Time
	Code           string
	OwnerAccountID string
}

// ReferralReward фиксирует начисление бонуса за приглашенного пользователя. Это единственный источник
// данных о реферальных начислениях, все счетчики в профиле строятся по нему.
type ReferralReward struct {
	ID                string
	CreatedAt         time.Time
	ReferralID        string
	ReferrerAccountID string
	ReferredAccountID string
	ReferrerCredits   int64
	SignupCredits     int64
}

type ReferredAccount struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// ReferralStats проекция журнала реферальных начислений владельца кода.
type ReferralStats struct {
	ReferredCount int64
	EarnedCredits int64
}
