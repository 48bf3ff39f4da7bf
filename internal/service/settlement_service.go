package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/metrics"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SettleOutcome результат попытки проведения платежа.
type SettleOutcome string

const (
	// SettleApplied ожидающая транзакция подтверждена, баланс пополнен.
	SettleApplied SettleOutcome = "applied"
	// SettleAppliedUnknown транзакции не было, она создана сразу подтвержденной. Требует сверки.
	SettleAppliedUnknown SettleOutcome = "applied_unknown_reference"
	// SettleDuplicate платеж уже проведен ранее, повторная доставка.
	SettleDuplicate SettleOutcome = "duplicate"
	// SettleTerminal транзакция уже в статусе failed, перевод из него запрещен.
	SettleTerminal SettleOutcome = "terminal"
)

type SettleResult struct {
	Outcome     SettleOutcome
	Transaction *domain.Transaction
}

// Applied возвращает true, если в результате вызова баланс был пополнен.
func (r *SettleResult) Applied() bool {
	return r.Outcome == SettleApplied || r.Outcome == SettleAppliedUnknown
}

type SettlementService struct {
	uow    uow.UOW
	txRepo TransactionRepository
	l      *logrus.Entry
}

func NewSettlementService(u uow.UOW, l *logrus.Logger) (*SettlementService, error) {
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &SettlementService{
		uow:    u,
		txRepo: txRepo,
		l: l.WithFields(logrus.Fields{
			"component": "service",
			"module":    "settlement",
		}),
	}, nil
}

// Settle проводит платеж event не более одного раза на event.ExternalReference.
//
// Алгоритм работы (все в одной транзакции БД):
//  1. Блокирует транзакцию журнала по ExternalReference.
//  2. Подтвержденная транзакция - повторная доставка, ничего не меняем.
//  3. Ожидающая транзакция - увеличиваем баланс владельца и переводим ее в confirmed.
//  4. Транзакции нет - пополняем баланс и создаем транзакцию сразу в confirmed. Такой путь помечается для
//     сверки. Если параллельный запрос успел вставить ту же ExternalReference, уникальный индекс откатит
//     нашу транзакцию целиком, и результат будет SettleDuplicate.
//
// Ошибки: domain.ErrMalformedEvent (в т.ч. неизвестный аккаунт), domain.ErrOwnerConflict, остальные - ошибки
// хранилища.
func (s *SettlementService) Settle(ctx context.Context, event domain.SettlementEvent) (*SettleResult, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("settling %s: %w", event.ExternalReference, err)
	}

	l := s.l.WithFields(logrus.Fields{
		"externalReference": event.ExternalReference,
		"accountId":         event.AccountID,
		"paymentType":       event.PaymentType,
	})

	started := time.Now()
	var result *SettleResult
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		txRepo, accRepo, repoErr := s.repos(tx)
		if repoErr != nil {
			return repoErr
		}

		existing, findErr := txRepo.LockByExternalReference(c, event.ExternalReference)
		switch {
		case findErr == nil:
			var settleErr error
			result, settleErr = s.settleExisting(c, l, txRepo, accRepo, existing, event)
			return settleErr
		case errors.Is(findErr, domain.ErrRecordNotFound):
			var settleErr error
			result, settleErr = s.settleUnknown(c, txRepo, accRepo, event)
			return settleErr
		default:
			return findErr //nolint:wrapcheck
		}
	})
	metrics.SettleDuration.WithLabelValues(string(event.PaymentType)).Observe(time.Since(started).Seconds())

	if txErr != nil {
		if errors.Is(txErr, domain.ErrDuplicateKey) {
			// параллельная доставка вставила транзакцию раньше нас, наши изменения откатились.
			l.Debug("lost insert race to a concurrent delivery")
			return &SettleResult{Outcome: SettleDuplicate}, nil
		}
		return nil, fmt.Errorf("settling %s: %w", event.ExternalReference, txErr)
	}

	switch result.Outcome {
	case SettleAppliedUnknown:
		metrics.ReconcileReview.WithLabelValues(string(event.PaymentType), "unknown_reference").Inc()
		l.WithField("reconcile_review", true).
			WithField("credits", event.CreditsToAdd).
			Warn("settled a charge without a pending transaction")
	case SettleTerminal:
		metrics.ReconcileReview.WithLabelValues(string(event.PaymentType), "terminal_state").Inc()
		l.WithField("reconcile_review", true).Warn("settlement for a failed transaction ignored")
	case SettleDuplicate:
		l.Debug("duplicate settlement ignored")
	case SettleApplied:
		l.WithField("credits", event.CreditsToAdd).Info("settled")
	}
	return result, nil
}

func (s *SettlementService) settleExisting(
	ctx context.Context,
	l *logrus.Entry,
	txRepo TransactionRepository,
	accRepo AccountRepository,
	existing *domain.Transaction,
	event domain.SettlementEvent,
) (*SettleResult, error) {
	switch existing.Status {
	case domain.TransactionStatusConfirmed:
		return &SettleResult{Outcome: SettleDuplicate, Transaction: existing}, nil
	case domain.TransactionStatusFailed:
		return &SettleResult{Outcome: SettleTerminal, Transaction: existing}, nil
	case domain.TransactionStatusPending:
	default:
		return nil, fmt.Errorf("transaction %s has unexpected status %q: %w", existing.ID, existing.Status,
			domain.ErrUnknown)
	}

	if existing.AccountID != event.AccountID {
		return nil, fmt.Errorf("transaction %s belongs to %s, event names %s: %w",
			existing.ID, existing.AccountID, event.AccountID, domain.ErrOwnerConflict)
	}
	if existing.Credits != event.CreditsToAdd {
		l.WithField("reconcile_review", true).
			WithField("pendingCredits", existing.Credits).
			Warn("event credits differ from the pending transaction")
	}

	if _, err := accRepo.IncrementBalance(ctx, existing.AccountID, event.CreditsToAdd); err != nil {
		return nil, err //nolint:wrapcheck
	}
	confirmed, err := txRepo.UpdateStatus(
		ctx,
		existing.ID,
		domain.TransactionStatusPending,
		domain.TransactionStatusConfirmed,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &SettleResult{Outcome: SettleApplied, Transaction: confirmed}, nil
}

func (s *SettlementService) settleUnknown(
	ctx context.Context,
	txRepo TransactionRepository,
	accRepo AccountRepository,
	event domain.SettlementEvent,
) (*SettleResult, error) {
	if _, err := accRepo.IncrementBalance(ctx, event.AccountID, event.CreditsToAdd); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewMalformedEventError("accountId", "unknown account "+event.AccountID)
		}
		return nil, err //nolint:wrapcheck
	}

	created, err := txRepo.Create(ctx, repoargs.CreateTransaction{
		ID:                uuid.NewString(),
		AccountID:         event.AccountID,
		Amount:            event.SettlementAmount,
		Credits:           event.CreditsToAdd,
		PaymentType:       event.PaymentType,
		ExternalReference: event.ExternalReference,
		Status:            domain.TransactionStatusConfirmed,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &SettleResult{Outcome: SettleAppliedUnknown, Transaction: created}, nil
}

// MarkFailed переводит ожидающую транзакцию в failed. Возвращает false, если транзакция уже в конечном
// статусе. Баланс не меняется.
func (s *SettlementService) MarkFailed(ctx context.Context, externalReference string) (bool, error) {
	var marked bool
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		txRepo, _, repoErr := s.repos(tx)
		if repoErr != nil {
			return repoErr
		}
		existing, err := txRepo.LockByExternalReference(c, externalReference)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if existing.Status != domain.TransactionStatusPending {
			return nil
		}
		if _, err = txRepo.UpdateStatus(
			c,
			existing.ID,
			domain.TransactionStatusPending,
			domain.TransactionStatusFailed,
		); err != nil {
			return err //nolint:wrapcheck
		}
		marked = true
		return nil
	})
	if txErr != nil {
		return false, fmt.Errorf("marking %s failed: %w", externalReference, txErr)
	}
	if marked {
		s.l.WithField("externalReference", externalReference).Info("pending transaction marked failed")
	}
	return marked, nil
}

// PendingForReconcile возвращает ожидающие транзакции старше olderThan, реже всего проверявшиеся первыми.
// Каждый вызов отмечает возвращенные транзакции проверенными.
func (s *SettlementService) PendingForReconcile(
	ctx context.Context,
	olderThan time.Duration,
	limit uint,
) ([]domain.Transaction, error) {
	transactions, err := s.txRepo.ClaimPending(ctx, repoargs.PendingTransactions{
		CreatedBefore: time.Now().Add(-olderThan),
		Limit:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("pending for reconcile: %w", err)
	}
	return transactions, nil
}

func (s *SettlementService) repos(tx uow.TX) (TransactionRepository, AccountRepository, error) {
	txRepo, err := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	accRepo, err := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	return txRepo, accRepo, nil
}
