package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/credit-ledger/internal/transport/api/middlewares"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup         = "/api"
	CardWebhookRoute   = "/webhooks/card"
	CryptoWebhookRoute = "/webhooks/crypto"
	RegisterRoute      = "/user/register"
	LoginRoute         = "/user/login"
	AccountRoute       = "/user/account"
	TransactionsRoute  = "/user/transactions"
	ReferralRoute      = "/user/referral"
	ReferredRoute      = "/user/referral/referred"
	CheckoutRoute      = "/user/checkout"

	MetricsRoute = "/metrics"
)

type RouterArgs struct {
	Logger            *logrus.Logger
	AccountService    AccountServicer
	ReferralService   ReferralServicer
	CheckoutService   CheckoutServicer
	SettlementService Settler
	CardWebhook       WebhookSource
	CryptoWebhook     WebhookSource
	JWTSecretKey      []byte
	// RateLimiter может быть nil, тогда ограничения нет.
	RateLimiter *middlewares.RateLimiter
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	if args.Logger == nil {
		args.Logger = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.Logger(args.Logger))
	r.Use(middlewares.Errors())

	r.GET(MetricsRoute, gin.WrapH(promhttp.Handler()))

	authHandler := NewAuthHandler(args.AccountService)
	accountHandler := NewAccountHandler(args.AccountService)
	referralHandler := NewReferralHandler(args.ReferralService)
	checkoutHandler := NewCheckoutHandler(args.CheckoutService)
	cardWebhook := NewWebhookHandler(args.CardWebhook, args.SettlementService, args.Logger)
	cryptoWebhook := NewWebhookHandler(args.CryptoWebhook, args.SettlementService, args.Logger)

	api := r.Group(RouteGroup)

	// вебхуки аутентифицируются подписью, а не JWT.
	api.POST(CardWebhookRoute, cardWebhook.Receive)
	api.POST(CryptoWebhookRoute, cryptoWebhook.Receive)

	api.POST(RegisterRoute,
		args.RateLimiter.Middleware("register"),
		middlewares.NonAuthRequired(args.JWTSecretKey),
		authHandler.Register,
	)
	api.POST(LoginRoute,
		args.RateLimiter.Middleware("login"),
		middlewares.NonAuthRequired(args.JWTSecretKey),
		authHandler.Login,
	)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.GET(AccountRoute, accountHandler.Show)
	api.GET(TransactionsRoute, accountHandler.Transactions)

	api.GET(ReferralRoute, referralHandler.Show)
	api.POST(ReferralRoute, referralHandler.Create)
	api.GET(ReferredRoute, referralHandler.Referred)

	api.POST(CheckoutRoute, args.RateLimiter.Middleware("checkout"), checkoutHandler.Create)
	return r, nil
}
