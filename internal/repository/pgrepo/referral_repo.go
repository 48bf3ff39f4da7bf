package pgrepo

import (
	"context"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type ReferralRepository struct {
	conn uow.DBTX
}

func NewReferralRepository(conn uow.DBTX) *ReferralRepository {
	return &ReferralRepository{conn: conn}
}

// Create создает реферальный код. Конфликт по коду или по владельцу дает domain.ErrDuplicateKey.
func (r *ReferralRepository) Create(ctx context.Context, args repoargs.CreateReferral) (*domain.Referral, error) {
	row := r.conn.QueryRow(ctx,
		`INSERT INTO referrals (id, code, owner_account_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, code, owner_account_id`,
		args.ID, args.Code, args.OwnerAccountID,
	)
	referral, err := scanReferral(row)
	if err != nil {
		return nil, convertErr(err, "creating referral for account %s", args.OwnerAccountID)
	}
	return referral, nil
}

func (r *ReferralRepository) FindByCode(ctx context.Context, code string) (*domain.Referral, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT id, created_at, code, owner_account_id FROM referrals WHERE code = $1`,
		code,
	)
	referral, err := scanReferral(row)
	if err != nil {
		return nil, convertErr(err, "finding referral by code %s", code)
	}
	return referral, nil
}

func (r *ReferralRepository) FindByOwner(ctx context.Context, accountID string) (*domain.Referral, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT id, created_at, code, owner_account_id FROM referrals WHERE owner_account_id = $1`,
		accountID,
	)
	referral, err := scanReferral(row)
	if err != nil {
		return nil, convertErr(err, "finding referral of account %s", accountID)
	}
	return referral, nil
}

// CreateReward записывает реферальное начисление. На приглашенного аккаунта допускается ровно одна запись.
func (r *ReferralRepository) CreateReward(
	ctx context.Context,
	args repoargs.CreateReferralReward,
) (*domain.ReferralReward, error) {
	var reward domain.ReferralReward
	err := r.conn.QueryRow(ctx,
		`INSERT INTO referral_rewards
		 (id, referral_id, referrer_account_id, referred_account_id, referrer_credits, signup_credits)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, referral_id, referrer_account_id, referred_account_id,
		 	referrer_credits, signup_credits`,
		args.ID, args.ReferralID, args.ReferrerAccountID, args.ReferredAccountID,
		args.ReferrerCredits, args.SignupCredits,
	).Scan(
		&reward.ID,
		&reward.CreatedAt,
		&reward.ReferralID,
		&reward.ReferrerAccountID,
		&reward.ReferredAccountID,
		&reward.ReferrerCredits,
		&reward.SignupCredits,
	)
	if err != nil {
		return nil, convertErr(err, "creating referral reward for %s", args.ReferredAccountID)
	}
	return &reward, nil
}

func (r *ReferralRepository) SumRewardsByReferrer(
	ctx context.Context,
	accountID string,
) (*repoargs.ReferralRewardAggregation, error) {
	var agg repoargs.ReferralRewardAggregation
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(referrer_credits), 0)
		 FROM referral_rewards
		 WHERE referrer_account_id = $1`,
		accountID,
	).Scan(&agg.Count, &agg.Credits)
	if err != nil {
		return nil, convertErr(err, "summing referral rewards of %s", accountID)
	}
	return &agg, nil
}

func scanReferral(row pgx.Row) (*domain.Referral, error) {
	var referral domain.Referral
	if err := row.Scan(&referral.ID, &referral.CreatedAt, &referral.Code, &referral.OwnerAccountID); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &referral, nil
}
