package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/metrics"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/internal/service/tokens"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const JWTTokenExpire = 1 * time.Hour

type AccountService struct {
	uow            uow.UOW
	accountRepo    AccountRepository
	txRepo         TransactionRepository
	referrals      ReferralApplier
	jwtTokenSecret []byte
	psswd          PasswordHasher
	l              *logrus.Entry
}

func NewAccountService(
	u uow.UOW,
	referrals ReferralApplier,
	jwtTokenSecret []byte,
	psswd PasswordHasher,
	l *logrus.Logger,
) (*AccountService, error) {
	accountRepo, err := uow.GetRepositoryAs[AccountRepository](u, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &AccountService{
		uow:            u,
		accountRepo:    accountRepo,
		txRepo:         txRepo,
		referrals:      referrals,
		jwtTokenSecret: jwtTokenSecret,
		psswd:          psswd,
		l: l.WithFields(logrus.Fields{
			"component": "service",
			"module":    "account",
		}),
	}, nil
}

type RegisterArgs struct {
	Username     string
	Password     string
	ReferralCode string
}

// Register создает аккаунт и, если передан реферальный код, начисляет бонусы в той же транзакции.
// Неизвестный код отменяет регистрацию целиком: возвращается domain.ErrInvalidReferralCode, аккаунт не создается.
// Возвращает созданный аккаунт (с учетом бонуса) и jwt токен.
func (s *AccountService) Register(ctx context.Context, args RegisterArgs) (*domain.Account, string, error) {
	password, hashErr := s.psswd.HashPassword(args.Password)
	if hashErr != nil {
		return nil, "", fmt.Errorf("registering account: %s", hashErr.Error())
	}

	var account *domain.Account
	var rewarded bool
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		accountRepo, repoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		var createErr error
		account, createErr = accountRepo.Create(c, repoargs.CreateAccount{
			ID:       uuid.NewString(),
			Username: args.Username,
			Password: password,
		})
		if createErr != nil {
			return createErr //nolint:wrapcheck
		}

		if strings.TrimSpace(args.ReferralCode) == "" {
			return nil
		}
		if _, applyErr := s.referrals.Apply(c, tx, args.ReferralCode, account.ID); applyErr != nil {
			return applyErr //nolint:wrapcheck
		}
		rewarded = true
		// баланс изменился после бонуса.
		var findErr error
		account, findErr = accountRepo.FindByID(c, account.ID)
		return findErr //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, "", fmt.Errorf("registering account: %w", txErr)
	}
	if rewarded {
		metrics.ReferralRewards.Inc()
	}

	token, tokenErr := tokens.GenerateUserJWT(account.ID, JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("registering account: %w", tokenErr)
	}
	s.l.WithField("accountId", account.ID).Info("account registered")
	return account, token, nil
}

type LoginArgs struct {
	Username string
	Password string
}

// Login возвращает аккаунт и новый jwt токен. Ошибки: domain.ErrRecordNotFound, domain.ErrPasswordMissMatch.
func (s *AccountService) Login(ctx context.Context, args LoginArgs) (*domain.Account, string, error) {
	account, err := s.accountRepo.FindByUsername(ctx, args.Username)
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if !s.psswd.ComparePassword(args.Password, account.Password) {
		return nil, "", fmt.Errorf("login: %w", domain.ErrPasswordMissMatch)
	}
	token, tokenErr := tokens.GenerateUserJWT(account.ID, JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("login: %w", tokenErr)
	}
	return account, token, nil
}

type Profile struct {
	Account          *domain.Account
	ReferralCode     string
	ReferredCount    int64
	ReferralEarnings int64
}

// Profile собирает данные аккаунта для отображения. Реферальный код создается при первом обращении.
func (s *AccountService) Profile(ctx context.Context, accountID string) (*Profile, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	referral, err := s.referrals.GetOrCreateCode(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	stats, err := s.referrals.Stats(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &Profile{
		Account:          account,
		ReferralCode:     referral.Code,
		ReferredCount:    stats.ReferredCount,
		ReferralEarnings: stats.EarnedCredits,
	}, nil
}

// Transactions история покупок аккаунта, новые первыми.
func (s *AccountService) Transactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	transactions, err := s.txRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return []domain.Transaction{}, nil
		}
		return nil, fmt.Errorf("transactions: %w", err)
	}
	return transactions, nil
}
