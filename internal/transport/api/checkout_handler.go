package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/service"
)

type CheckoutHandler struct {
	checkoutSvs CheckoutServicer
}

func NewCheckoutHandler(checkoutSvs CheckoutServicer) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvs: checkoutSvs}
}

type CheckoutParams struct {
	CreditsRequested int64              `binding:"required"                  json:"creditsRequested"`
	PaymentType      domain.PaymentType `binding:"required"                  json:"paymentType"`
}

// Create POST RouteGroup + CheckoutRoute. Создает платеж у процессора и возвращает ссылку на оплату.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var params CheckoutParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout*3)
	defer cancel()

	res, err := h.checkoutSvs.Initiate(ctx, service.CheckoutArgs{
		AccountID:        getAccountIDFromContext(c),
		CreditsRequested: params.CreditsRequested,
		PaymentType:      params.PaymentType,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCheckout) {
			_ = c.AbortWithError(http.StatusBadRequest, err).SetType(gin.ErrorTypePublic)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, errors.New("could not start checkout")).
			SetType(gin.ErrorTypePublic)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirectUrl": res.RedirectURL})
}
