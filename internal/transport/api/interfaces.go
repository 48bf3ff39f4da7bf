package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/service"
)

type AccountServicer interface {
	Register(ctx context.Context, args service.RegisterArgs) (*domain.Account, string, error)
	Login(ctx context.Context, args service.LoginArgs) (*domain.Account, string, error)
	Profile(ctx context.Context, accountID string) (*service.Profile, error)
	Transactions(ctx context.Context, accountID string) ([]domain.Transaction, error)
}

type ReferralServicer interface {
	GetOrCreateCode(ctx context.Context, accountID string) (*domain.Referral, error)
	FindCode(ctx context.Context, accountID string) (*domain.Referral, error)
	Referred(ctx context.Context, accountID string) ([]domain.ReferredAccount, error)
}

type CheckoutServicer interface {
	Initiate(ctx context.Context, args service.CheckoutArgs) (*service.CheckoutResult, error)
}

// Settler проводит нормализованные события процессоров.
type Settler interface {
	Settle(ctx context.Context, event domain.SettlementEvent) (*service.SettleResult, error)
}
