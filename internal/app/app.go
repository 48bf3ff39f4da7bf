package app

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/credit-ledger/internal/config"
	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/repository/pgrepo"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/internal/service"
	"github.com/fsdevblog/credit-ledger/internal/transport/api"
	"github.com/fsdevblog/credit-ledger/internal/transport/api/middlewares"
	"github.com/fsdevblog/credit-ledger/internal/transport/processor/card"
	"github.com/fsdevblog/credit-ledger/internal/transport/processor/crypto"
	"github.com/fsdevblog/credit-ledger/internal/transport/reconcile"
	"github.com/fsdevblog/credit-ledger/internal/transport/webhook"
	"github.com/fsdevblog/credit-ledger/pkg/uow"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

const (
	successPath = "/payment-success"
	cancelPath  = "/account"

	rateLimitPerWindow = 10
	rateLimitWindow    = time.Minute
)

// ledgerTxOptions параметры транзакций сервисов. Проведение платежа полагается на FOR UPDATE
// и уникальный индекс external_reference.
var ledgerTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// секреты в лог не попадают.
	a.Logger.WithFields(logrus.Fields{
		"run_address":        a.Config.RunAddress,
		"public_base_url":    a.Config.PublicBaseURL,
		"card_api":           a.Config.CardAPIBaseURL,
		"crypto_api":         a.Config.CryptoAPIBaseURL,
		"redis":              a.Config.RedisAddr,
		"reconcile_interval": a.Config.ReconcileInterval.String(),
	}).Info("starting app")
	if a.Config.CardWebhookSecret == "" || a.Config.CryptoWebhookSecret == "" {
		a.Logger.Warn("webhook secret is not set, deliveries of that processor will be rejected")
	}

	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	checkoutURLs, urlsErr := buildCheckoutURLs(a.Config.PublicBaseURL)
	if urlsErr != nil {
		return fmt.Errorf("app run: %s", urlsErr.Error())
	}

	cardClient := card.New(a.Config.CardAPIBaseURL, a.Config.CardAPIKey)
	cryptoClient := crypto.New(a.Config.CryptoAPIBaseURL, a.Config.CryptoAPIKey)

	services, sErr := service.Factory(unitOfWork, service.FactoryArgs{
		JWTSecret: []byte(a.Config.JWTUserSecret),
		ChargeCreators: map[domain.PaymentType]service.ChargeCreator{
			domain.PaymentTypeCard:   cardClient,
			domain.PaymentTypeCrypto: cryptoClient,
		},
		CheckoutURLs: checkoutURLs,
		Logger:       a.Logger,
	})
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	var redisClient *redis.Client
	if a.Config.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		defer redisClient.Close()
	}

	router, routerErr := api.New(api.RouterArgs{
		Logger:            a.Logger,
		AccountService:    services.AccountService,
		ReferralService:   services.ReferralService,
		CheckoutService:   services.CheckoutService,
		SettlementService: services.SettlementService,
		CardWebhook: api.WebhookSource{
			Processor:       string(domain.PaymentTypeCard),
			SignatureHeader: webhook.CardSignatureHeader,
			Verifier: webhook.NewTimestampedHMACVerifier(
				a.Config.CardWebhookSecret,
				webhook.DefaultTimestampTolerance,
			),
			Normalizer: webhook.CardNormalizer{},
		},
		CryptoWebhook: api.WebhookSource{
			Processor:       string(domain.PaymentTypeCrypto),
			SignatureHeader: webhook.CryptoSignatureHeader,
			Verifier:        webhook.NewHexHMACVerifier(a.Config.CryptoWebhookSecret),
			Normalizer:      webhook.CryptoNormalizer{},
		},
		JWTSecretKey: []byte(a.Config.JWTUserSecret),
		RateLimiter:  middlewares.NewRateLimiter(redisClient, rateLimitPerWindow, rateLimitWindow, a.Logger),
	})
	if routerErr != nil {
		return fmt.Errorf("app run: %s", routerErr.Error())
	}

	errChan := make(chan error, 1)

	go func() {
		if runErr := router.Run(a.Config.RunAddress); runErr != nil {
			errChan <- runErr
		}
	}()

	reconciler := reconcile.New(services.SettlementService, map[domain.PaymentType]reconcile.Inspector{
		domain.PaymentTypeCard:   cardClient,
		domain.PaymentTypeCrypto: cryptoClient,
	}, a.Logger).
		SetWorkers(5).            //nolint:mnd
		SetLimitPerIteration(50). //nolint:mnd
		SetInterval(a.Config.ReconcileInterval).
		SetOlderThan(a.Config.ReconcileAfter)

	go reconciler.Run(notifyCtx)

	select {
	case <-notifyCtx.Done():
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// buildCheckoutURLs адреса возврата пользователя с платежной страницы процессора.
func buildCheckoutURLs(publicBaseURL string) (service.CheckoutURLs, error) {
	base, err := url.Parse(publicBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return service.CheckoutURLs{}, fmt.Errorf("invalid public base url %q", publicBaseURL)
	}
	return service.CheckoutURLs{
		SuccessURL: base.JoinPath(successPath).String(),
		CancelURL:  base.JoinPath(cancelPath).String(),
	}, nil
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn, uow.WithTxOptions(ledgerTxOptions))

	// account repo
	accountRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewAccountRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.AccountRepoName), accountRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// transaction repo
	transactionRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewTransactionRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.TransactionRepoName),
		transactionRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// referral repo
	referralRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewReferralRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.ReferralRepoName), referralRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	return unitOfWork, nil
}
