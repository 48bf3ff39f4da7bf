package pgrepo

import (
	"context"
	"fmt"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, created_at, updated_at, username, encrypted_password, credit_balance, referred_by_referral_id`

type AccountRepository struct {
	conn uow.DBTX
}

func NewAccountRepository(conn uow.DBTX) *AccountRepository {
	return &AccountRepository{conn: conn}
}

// Create создает аккаунт с нулевым балансом. При конфликте username возвращает domain.ErrDuplicateKey.
func (a *AccountRepository) Create(ctx context.Context, args repoargs.CreateAccount) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx,
		`INSERT INTO accounts (id, username, encrypted_password)
		 VALUES ($1, $2, $3)
		 RETURNING `+accountColumns,
		args.ID, args.Username, args.Password,
	)
	account, err := scanAccount(row)
	if err != nil {
		if isConstraintViolation(err, accountsUsernameConstraint) {
			return nil, fmt.Errorf("[repository/creating account %s] %w", args.Username, domain.ErrUsernameTaken)
		}
		return nil, convertErr(err, "creating account %s", args.Username)
	}
	return account, nil
}

func (a *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "finding account by id %s", id)
	}
	return account, nil
}

func (a *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "finding account by username %s", username)
	}
	return account, nil
}

// IncrementBalance атомарно увеличивает баланс аккаунта на credits. Строка аккаунта остается заблокированной
// до конца текущей транзакции. Если аккаунта нет, возвращает domain.ErrRecordNotFound.
func (a *AccountRepository) IncrementBalance(ctx context.Context, id string, credits int64) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx,
		`UPDATE accounts
		 SET credit_balance = credit_balance + $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+accountColumns,
		id, credits,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "incrementing balance of account %s", id)
	}
	return account, nil
}

// SetReferredBy проставляет реферальную связь. Связь неизменяема: если она уже задана, вернется
// domain.ErrOwnerConflict.
func (a *AccountRepository) SetReferredBy(ctx context.Context, id string, referralID string) error {
	tag, err := a.conn.Exec(ctx,
		`UPDATE accounts
		 SET referred_by_referral_id = $2, updated_at = now()
		 WHERE id = $1 AND referred_by_referral_id IS NULL`,
		id, referralID,
	)
	if err != nil {
		return convertErr(err, "setting referral of account %s", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[repository/setting referral of account %s] %w", id, domain.ErrOwnerConflict)
	}
	return nil
}

// ListReferredBy возвращает аккаунты, зарегистрированные по реферальному коду referralID.
func (a *AccountRepository) ListReferredBy(ctx context.Context, referralID string) ([]domain.ReferredAccount, error) {
	rows, err := a.conn.Query(ctx,
		`SELECT id, username, created_at
		 FROM accounts
		 WHERE referred_by_referral_id = $1
		 ORDER BY created_at DESC`,
		referralID,
	)
	if err != nil {
		return nil, convertErr(err, "listing accounts referred by %s", referralID)
	}
	referred, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ReferredAccount, error) {
		var r domain.ReferredAccount
		scanErr := row.Scan(&r.ID, &r.Username, &r.CreatedAt)
		return r, scanErr
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "listing accounts referred by %s", referralID)
	}
	return referred, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.Username,
		&account.Password,
		&account.CreditBalance,
		&account.ReferredByReferralID,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &account, nil
}
