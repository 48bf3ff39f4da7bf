package pgrepo

import (
	"context"
	"fmt"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, created_at, updated_at, account_id, amount::text, credits, payment_type,
	external_reference, status`

type TransactionRepository struct {
	conn uow.DBTX
}

func NewTransactionRepository(conn uow.DBTX) *TransactionRepository {
	return &TransactionRepository{conn: conn}
}

// Create добавляет запись в журнал. Повторная запись с тем же external_reference завершится ошибкой
// domain.ErrDuplicateKey: уникальный индекс является сигналом того, что параллельный запрос уже
// провел этот платеж.
func (t *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	row := t.conn.QueryRow(ctx,
		`INSERT INTO transactions (id, account_id, amount, credits, payment_type, external_reference, status)
		 VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		 RETURNING `+transactionColumns,
		args.ID,
		args.AccountID,
		args.Amount.StringFixed(2),
		args.Credits,
		string(args.PaymentType),
		args.ExternalReference,
		string(args.Status),
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating transaction %s", args.ExternalReference)
	}
	return transaction, nil
}

func (t *TransactionRepository) FindByExternalReference(
	ctx context.Context,
	externalReference string,
) (*domain.Transaction, error) {
	row := t.conn.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE external_reference = $1`,
		externalReference,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding transaction %s", externalReference)
	}
	return transaction, nil
}

// LockByExternalReference как FindByExternalReference, но блокирует строку (FOR UPDATE) до конца транзакции.
// Параллельная доставка того же события ждет здесь и затем видит уже обновленный статус.
func (t *TransactionRepository) LockByExternalReference(
	ctx context.Context,
	externalReference string,
) (*domain.Transaction, error) {
	row := t.conn.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE external_reference = $1 FOR UPDATE`,
		externalReference,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "locking transaction %s", externalReference)
	}
	return transaction, nil
}

// UpdateStatus переводит транзакцию id из статуса from в статус to. Если транзакция уже не в статусе from,
// вернется domain.ErrRecordNotFound.
func (t *TransactionRepository) UpdateStatus(
	ctx context.Context,
	id string,
	from, to domain.TransactionStatus,
) (*domain.Transaction, error) {
	row := t.conn.QueryRow(ctx,
		`UPDATE transactions
		 SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2
		 RETURNING `+transactionColumns,
		id, string(from), string(to),
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "updating transaction %s status %s -> %s", id, from, to)
	}
	return transaction, nil
}

// GetByAccountID возвращает транзакции аккаунта, отсортированные по дате создания по убыванию.
func (t *TransactionRepository) GetByAccountID(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	rows, err := t.conn.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE account_id = $1
		 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, convertErr(err, "getting transactions of account %s", accountID)
	}
	return collectTransactions(rows, "getting transactions of account "+accountID)
}

// ClaimPending выбирает ожидающие транзакции, созданные раньше args.CreatedBefore, и отмечает их проверку
// (last_checked_at, check_attempts). Первыми идут еще не проверенные, затем проверенные раньше всех, поэтому
// строки, которые процессор не может разрешить, уходят в конец очереди и не вытесняют новые.
// Строки, выбранные параллельным вызовом, пропускаются.
func (t *TransactionRepository) ClaimPending(
	ctx context.Context,
	args repoargs.PendingTransactions,
) ([]domain.Transaction, error) {
	rows, err := t.conn.Query(ctx,
		`UPDATE transactions
		 SET last_checked_at = now(), check_attempts = check_attempts + 1
		 WHERE id IN (
		     SELECT id FROM transactions
		     WHERE status = $1 AND created_at < $2
		     ORDER BY last_checked_at NULLS FIRST, created_at
		     LIMIT $3
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+transactionColumns,
		string(domain.TransactionStatusPending), args.CreatedBefore, int64(args.Limit),
	)
	if err != nil {
		return nil, convertErr(err, "claiming pending transactions")
	}
	return collectTransactions(rows, "claiming pending transactions")
}

func collectTransactions(rows pgx.Rows, msg string) ([]domain.Transaction, error) {
	transactions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		transaction, scanErr := scanTransaction(row)
		if scanErr != nil {
			return domain.Transaction{}, scanErr
		}
		return *transaction, nil
	})
	if err != nil {
		return nil, convertErr(err, "%s", msg)
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		transaction domain.Transaction
		amount      string
		paymentType string
		status      string
	)
	err := row.Scan(
		&transaction.ID,
		&transaction.CreatedAt,
		&transaction.UpdatedAt,
		&transaction.AccountID,
		&amount,
		&transaction.Credits,
		&paymentType,
		&transaction.ExternalReference,
		&status,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	transaction.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	transaction.PaymentType = domain.PaymentType(paymentType)
	transaction.Status = domain.TransactionStatus(status)
	return &transaction, nil
}
