package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	ReferrerRewardCredits int64 = 100
	SignupBonusCredits    int64 = 100

	referralCodeLength   = 8
	referralCodeAttempts = 5
)

type ReferralService struct {
	referralRepo ReferralRepository
	accountRepo  AccountRepository
	newCode      func() string
	l            *logrus.Entry
}

func NewReferralService(u uow.UOW, l *logrus.Logger) (*ReferralService, error) {
	referralRepo, err := uow.GetRepositoryAs[ReferralRepository](u, uow.RepositoryName(repoargs.ReferralRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	accountRepo, err := uow.GetRepositoryAs[AccountRepository](u, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &ReferralService{
		referralRepo: referralRepo,
		accountRepo:  accountRepo,
		newCode:      generateReferralCode,
		l: l.WithFields(logrus.Fields{
			"component": "service",
			"module":    "referral",
		}),
	}, nil
}

// NormalizeReferralCode приводит код к каноническому виду, в котором он хранится.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:referralCodeLength])
}

// GetOrCreateCode возвращает реферальный код аккаунта, создавая его при первом обращении. У аккаунта может
// быть только один код: если параллельный запрос успел создать свой, вернется он.
func (r *ReferralService) GetOrCreateCode(ctx context.Context, accountID string) (*domain.Referral, error) {
	existing, err := r.referralRepo.FindByOwner(ctx, accountID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("get or create referral code: %w", err)
	}

	var lastErr error
	for range referralCodeAttempts {
		referral, createErr := r.referralRepo.Create(ctx, repoargs.CreateReferral{
			ID:             uuid.NewString(),
			Code:           r.newCode(),
			OwnerAccountID: accountID,
		})
		if createErr == nil {
			return referral, nil
		}
		if !errors.Is(createErr, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("get or create referral code: %w", createErr)
		}
		// дубликат либо по владельцу (код уже создан параллельно), либо по самому коду (коллизия).
		if owned, findErr := r.referralRepo.FindByOwner(ctx, accountID); findErr == nil {
			return owned, nil
		}
		lastErr = createErr
	}
	return nil, fmt.Errorf("get or create referral code after %d attempts: %w", referralCodeAttempts, lastErr)
}

// FindCode возвращает код аккаунта или domain.ErrRecordNotFound, если он еще не создан.
func (r *ReferralService) FindCode(ctx context.Context, accountID string) (*domain.Referral, error) {
	referral, err := r.referralRepo.FindByOwner(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("finding referral code: %w", err)
	}
	return referral, nil
}

// Referred возвращает аккаунты, зарегистрированные по коду accountID.
func (r *ReferralService) Referred(ctx context.Context, accountID string) ([]domain.ReferredAccount, error) {
	referral, err := r.referralRepo.FindByOwner(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return []domain.ReferredAccount{}, nil
		}
		return nil, fmt.Errorf("listing referred accounts: %w", err)
	}
	referred, err := r.accountRepo.ListReferredBy(ctx, referral.ID)
	if err != nil {
		return nil, fmt.Errorf("listing referred accounts: %w", err)
	}
	return referred, nil
}

// Stats проекция журнала реферальных начислений. Только чтение, ничего не начисляет.
func (r *ReferralService) Stats(ctx context.Context, accountID string) (*domain.ReferralStats, error) {
	agg, err := r.referralRepo.SumRewardsByReferrer(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("referral stats: %w", err)
	}
	return &domain.ReferralStats{ReferredCount: agg.Count, EarnedCredits: agg.Credits}, nil
}

// Apply применяет реферальный код к только что созданному аккаунту newAccountID. Должен выполняться в той же
// транзакции tx, что и создание аккаунта: при неизвестном коде возвращается domain.ErrInvalidReferralCode,
// и вызывающая сторона обязана откатить создание аккаунта.
//
// В рамках tx: проставляет связь аккаунта с кодом, начисляет SignupBonusCredits новому аккаунту,
// ReferrerRewardCredits владельцу кода и записывает начисление в журнал referral_rewards.
func (r *ReferralService) Apply(
	ctx context.Context,
	tx uow.TX,
	code string,
	newAccountID string,
) (*domain.ReferralReward, error) {
	referralRepo, err := uow.GetAs[ReferralRepository](tx, uow.RepositoryName(repoargs.ReferralRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	accountRepo, err := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	referral, findErr := referralRepo.FindByCode(ctx, NormalizeReferralCode(code))
	if findErr != nil {
		if errors.Is(findErr, domain.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidReferralCode, code)
		}
		return nil, findErr //nolint:wrapcheck
	}
	if referral.OwnerAccountID == newAccountID {
		return nil, fmt.Errorf("%w: own code", domain.ErrInvalidReferralCode)
	}

	if err = accountRepo.SetReferredBy(ctx, newAccountID, referral.ID); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if _, err = accountRepo.IncrementBalance(ctx, newAccountID, SignupBonusCredits); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if _, err = accountRepo.IncrementBalance(ctx, referral.OwnerAccountID, ReferrerRewardCredits); err != nil {
		return nil, err //nolint:wrapcheck
	}
	reward, err := referralRepo.CreateReward(ctx, repoargs.CreateReferralReward{
		ID:                uuid.NewString(),
		ReferralID:        referral.ID,
		ReferrerAccountID: referral.OwnerAccountID,
		ReferredAccountID: newAccountID,
		ReferrerCredits:   ReferrerRewardCredits,
		SignupCredits:     SignupBonusCredits,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	r.l.WithFields(logrus.Fields{
		"referralId": referral.ID,
		"referrerId": referral.OwnerAccountID,
		"accountId":  newAccountID,
	}).Info("referral reward granted")
	return reward, nil
}
