package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/metrics"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	MinCheckoutCredits int64 = 50
	MaxCheckoutCredits       = domain.MaxPurchaseCredits
	// CreditsPerCurrencyUnit 10 кредитов = 1 единица валюты расчетов.
	CreditsPerCurrencyUnit int64 = 10
)

// CheckoutURLs адреса возврата пользователя после оплаты. Возврат на SuccessURL ничего не начисляет.
type CheckoutURLs struct {
	SuccessURL string
	CancelURL  string
}

type CheckoutService struct {
	txRepo   TransactionRepository
	creators map[domain.PaymentType]ChargeCreator
	urls     CheckoutURLs
	l        *logrus.Entry
}

func NewCheckoutService(
	u uow.UOW,
	creators map[domain.PaymentType]ChargeCreator,
	urls CheckoutURLs,
	l *logrus.Logger,
) (*CheckoutService, error) {
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &CheckoutService{
		txRepo:   txRepo,
		creators: creators,
		urls:     urls,
		l: l.WithFields(logrus.Fields{
			"component": "service",
			"module":    "checkout",
		}),
	}, nil
}

type CheckoutArgs struct {
	AccountID        string
	CreditsRequested int64
	PaymentType      domain.PaymentType
}

type CheckoutResult struct {
	RedirectURL       string
	ExternalReference string
}

// SettlementAmount сумма к оплате за credits кредитов.
func SettlementAmount(credits int64) decimal.Decimal {
	return decimal.NewFromInt(credits).Div(decimal.NewFromInt(CreditsPerCurrencyUnit)).Round(2)
}

// Initiate создает платеж у процессора и ожидающую транзакцию под его идентификатор. Запрос проверяется до
// обращения к процессору; ошибки валидации оборачивают domain.ErrInvalidCheckout, ошибки процессора -
// domain.ErrProcessorUnavailable. Транзакция никогда не подтверждается здесь.
func (c *CheckoutService) Initiate(ctx context.Context, args CheckoutArgs) (*CheckoutResult, error) {
	creator, validateErr := c.validate(args)
	if validateErr != nil {
		metrics.Checkouts.WithLabelValues(string(args.PaymentType), "rejected").Inc()
		return nil, validateErr
	}

	amount := SettlementAmount(args.CreditsRequested)
	charge, chargeErr := creator.CreateCharge(ctx, domain.ChargeRequest{
		AccountID:  args.AccountID,
		Credits:    args.CreditsRequested,
		Amount:     amount,
		SuccessURL: c.urls.SuccessURL,
		CancelURL:  c.urls.CancelURL,
	})
	if chargeErr != nil {
		metrics.Checkouts.WithLabelValues(string(args.PaymentType), "processor_error").Inc()
		return nil, fmt.Errorf("initiating checkout: %w: %s", domain.ErrProcessorUnavailable, chargeErr.Error())
	}

	_, createErr := c.txRepo.Create(ctx, repoargs.CreateTransaction{
		ID:                uuid.NewString(),
		AccountID:         args.AccountID,
		Amount:            amount,
		Credits:           args.CreditsRequested,
		PaymentType:       args.PaymentType,
		ExternalReference: charge.ID,
		Status:            domain.TransactionStatusPending,
	})
	if createErr != nil {
		// платеж у процессора уже создан; если пользователь оплатит, вебхук проведет его без pending записи.
		c.l.WithError(createErr).
			WithField("externalReference", charge.ID).
			WithField("accountId", args.AccountID).
			Error("pending transaction not recorded")
		metrics.Checkouts.WithLabelValues(string(args.PaymentType), "store_error").Inc()
		return nil, fmt.Errorf("initiating checkout: %w", createErr)
	}

	metrics.Checkouts.WithLabelValues(string(args.PaymentType), "created").Inc()
	return &CheckoutResult{RedirectURL: charge.RedirectURL, ExternalReference: charge.ID}, nil
}

func (c *CheckoutService) validate(args CheckoutArgs) (ChargeCreator, error) {
	if args.AccountID == "" {
		return nil, fmt.Errorf("%w: account is required", domain.ErrInvalidCheckout)
	}
	if args.CreditsRequested < MinCheckoutCredits {
		return nil, fmt.Errorf("%w: minimum purchase is %d credits", domain.ErrInvalidCheckout, MinCheckoutCredits)
	}
	if args.CreditsRequested > MaxCheckoutCredits {
		return nil, fmt.Errorf("%w: maximum purchase is %d credits", domain.ErrInvalidCheckout, MaxCheckoutCredits)
	}
	creator, ok := c.creators[args.PaymentType]
	if !ok || creator == nil {
		return nil, fmt.Errorf("%w: unsupported payment type %q", domain.ErrInvalidCheckout, args.PaymentType)
	}
	return creator, nil
}

// IsValidationError true для ошибок, которые следует показать клиенту как 400.
func IsValidationError(err error) bool {
	return errors.Is(err, domain.ErrInvalidCheckout)
}
