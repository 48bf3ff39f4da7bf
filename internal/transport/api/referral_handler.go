package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fsdevblog/credit-ledger/internal/domain"
)

type ReferralHandler struct {
	referralSvs ReferralServicer
}

func NewReferralHandler(referralSvs ReferralServicer) *ReferralHandler {
	return &ReferralHandler{referralSvs: referralSvs}
}

type ReferralResponse struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// Show GET RouteGroup + ReferralRoute. Код текущего аккаунта, 404 если код еще не создан.
func (h *ReferralHandler) Show(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	referral, err := h.referralSvs.FindCode(ctx, getAccountIDFromContext(c))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			_ = c.AbortWithError(http.StatusNotFound, errors.New("referral code not created")).
				SetType(gin.ErrorTypePublic)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}
	c.JSON(http.StatusOK, ReferralResponse{Code: referral.Code, CreatedAt: referral.CreatedAt})
}

// Create POST RouteGroup + ReferralRoute. Возвращает код аккаунта, создавая его при первом вызове.
func (h *ReferralHandler) Create(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	referral, err := h.referralSvs.GetOrCreateCode(ctx, getAccountIDFromContext(c))
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}
	c.JSON(http.StatusOK, ReferralResponse{Code: referral.Code, CreatedAt: referral.CreatedAt})
}

type ReferredResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"login"`
	CreatedAt time.Time `json:"createdAt"`
}

// Referred GET RouteGroup + ReferredRoute. Аккаунты, зарегистрированные по коду текущего аккаунта.
func (h *ReferralHandler) Referred(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	referred, err := h.referralSvs.Referred(ctx, getAccountIDFromContext(c))
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	response := make([]ReferredResponse, len(referred))
	for i, r := range referred {
		response[i] = ReferredResponse{ID: r.ID, Username: r.Username, CreatedAt: r.CreatedAt}
	}
	c.JSON(http.StatusOK, response)
}
