package reconcile

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/service"
)

// Inspector запрашивает у процессора состояние платежа.
type Inspector interface {
	ChargeState(ctx context.Context, id string) (domain.ChargeState, error)
}

type Servicer interface {
	PendingForReconcile(ctx context.Context, olderThan time.Duration, limit uint) ([]domain.Transaction, error)
	Settle(ctx context.Context, event domain.SettlementEvent) (*service.SettleResult, error)
	MarkFailed(ctx context.Context, externalReference string) (bool, error)
}
