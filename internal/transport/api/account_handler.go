package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/credit-ledger/internal/domain"
)

type AccountHandler struct {
	accountSvs AccountServicer
}

func NewAccountHandler(accountSvs AccountServicer) *AccountHandler {
	return &AccountHandler{
		accountSvs: accountSvs,
	}
}

type ProfileResponse struct {
	AccountResponse
	ReferralCode     string `json:"referralCode"`
	ReferredCount    int64  `json:"referredCount"`
	ReferralEarnings int64  `json:"referralEarnings"`
}

// Show GET RouteGroup + AccountRoute.
func (h *AccountHandler) Show(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	profile, err := h.accountSvs.Profile(reqCtx, getAccountIDFromContext(c))
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		AccountResponse:  newAccountResponse(profile.Account),
		ReferralCode:     profile.ReferralCode,
		ReferredCount:    profile.ReferredCount,
		ReferralEarnings: profile.ReferralEarnings,
	})
}

type TransactionResponse struct {
	ID                string                   `json:"id"`
	Amount            decimal.Decimal          `json:"amount"`
	Credits           int64                    `json:"credits"`
	PaymentType       domain.PaymentType       `json:"paymentType"`
	ExternalReference string                   `json:"externalReference"`
	Status            domain.TransactionStatus `json:"status"`
	CreatedAt         time.Time                `json:"createdAt"`
}

// Transactions GET RouteGroup + TransactionsRoute. История покупок, новые первыми.
func (h *AccountHandler) Transactions(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, err := h.accountSvs.Transactions(reqCtx, getAccountIDFromContext(c))
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	response := make([]TransactionResponse, len(transactions))
	for i, tx := range transactions {
		response[i] = TransactionResponse{
			ID:                tx.ID,
			Amount:            tx.Amount,
			Credits:           tx.Credits,
			PaymentType:       tx.PaymentType,
			ExternalReference: tx.ExternalReference,
			Status:            tx.Status,
			CreatedAt:         tx.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, response)
}
