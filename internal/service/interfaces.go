package service

import (
	"context"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

type AccountRepository interface {
	Create(ctx context.Context, args repoargs.CreateAccount) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	IncrementBalance(ctx context.Context, id string, credits int64) (*domain.Account, error)
	SetReferredBy(ctx context.Context, id string, referralID string) error
	ListReferredBy(ctx context.Context, referralID string) ([]domain.ReferredAccount, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error)
	FindByExternalReference(ctx context.Context, externalReference string) (*domain.Transaction, error)
	LockByExternalReference(ctx context.Context, externalReference string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.TransactionStatus) (*domain.Transaction, error)
	GetByAccountID(ctx context.Context, accountID string) ([]domain.Transaction, error)
	// ClaimPending отмечает выбранные транзакции проверенными, следующий вызов начнет с других.
	ClaimPending(ctx context.Context, args repoargs.PendingTransactions) ([]domain.Transaction, error)
}

type ReferralRepository interface {
	Create(ctx context.Context, args repoargs.CreateReferral) (*domain.Referral, error)
	FindByCode(ctx context.Context, code string) (*domain.Referral, error)
	FindByOwner(ctx context.Context, accountID string) (*domain.Referral, error)
	CreateReward(ctx context.Context, args repoargs.CreateReferralReward) (*domain.ReferralReward, error)
	SumRewardsByReferrer(ctx context.Context, accountID string) (*repoargs.ReferralRewardAggregation, error)
}

// ChargeCreator создает платеж во внешнем процессоре.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error)
}

// ReferralApplier начисляет реферальные бонусы в транзакции создания аккаунта.
type ReferralApplier interface {
	Apply(ctx context.Context, tx uow.TX, code string, newAccountID string) (*domain.ReferralReward, error)
	GetOrCreateCode(ctx context.Context, accountID string) (*domain.Referral, error)
	Stats(ctx context.Context, accountID string) (*domain.ReferralStats, error)
}
