package repoargs

import (
	"time"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateTransaction struct {
	ID                string
	AccountID         string
	Amount            decimal.Decimal
	Credits           int64
	PaymentType       domain.PaymentType
	ExternalReference string
	Status            domain.TransactionStatus
}

type PendingTransactions struct {
	CreatedBefore time.Time
	Limit         uint
}
