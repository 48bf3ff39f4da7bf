package service

import (
	"fmt"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/service/psswd"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
	"github.com/sirupsen/logrus"
)

type AppServices struct {
	AccountService    *AccountService
	ReferralService   *ReferralService
	CheckoutService   *CheckoutService
	SettlementService *SettlementService
}

type FactoryArgs struct {
	JWTSecret      []byte
	ChargeCreators map[domain.PaymentType]ChargeCreator
	CheckoutURLs   CheckoutURLs
	Logger         *logrus.Logger
}

func Factory(unitOfWork uow.UOW, args FactoryArgs) (*AppServices, error) {
	referralService, referralServiceErr := NewReferralService(unitOfWork, args.Logger)
	if referralServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", referralServiceErr.Error())
	}

	accountService, accountServiceErr := NewAccountService(
		unitOfWork,
		referralService,
		args.JWTSecret,
		psswd.PasswordHash(""),
		args.Logger,
	)
	if accountServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", accountServiceErr.Error())
	}

	checkoutService, checkoutServiceErr := NewCheckoutService(
		unitOfWork,
		args.ChargeCreators,
		args.CheckoutURLs,
		args.Logger,
	)
	if checkoutServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", checkoutServiceErr.Error())
	}

	settlementService, settlementServiceErr := NewSettlementService(unitOfWork, args.Logger)
	if settlementServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", settlementServiceErr.Error())
	}

	return &AppServices{
		AccountService:    accountService,
		ReferralService:   referralService,
		CheckoutService:   checkoutService,
		SettlementService: settlementService,
	}, nil
}
