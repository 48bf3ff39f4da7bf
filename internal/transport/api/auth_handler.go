package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	accountService AccountServicer
}

func NewAuthHandler(accountService AccountServicer) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
	}
}

type RegisterParams struct {
	Username     string `binding:"required,min=1,max=32,max_bytes=64" json:"login"`
	Password     string `binding:"required,min=6,max=72,max_bytes=72"  json:"password"`
	ReferralCode string `binding:"omitempty,max=32"                    json:"referralCode"`
}

type AccountResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"login"`
	CreditBalance int64     `json:"creditBalance"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		Username:      a.Username,
		CreditBalance: a.CreditBalance,
		CreatedAt:     a.CreatedAt,
	}
}

// Register POST RouteGroup + RegisterRoute. Регистрирует аккаунт (с реферальным кодом, если передан)
// и аутентифицирует его.
func (h *AuthHandler) Register(c *gin.Context) {
	var params RegisterParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		var valErrs validator.ValidationErrors
		if errors.As(bindErr, &valErrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErrs.Error()})
			return
		}
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).
			SetType(gin.ErrorTypeBind)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	account, jwtToken, createErr := h.accountService.Register(ctx, service.RegisterArgs{
		Username:     params.Username,
		Password:     params.Password,
		ReferralCode: params.ReferralCode,
	})
	if createErr != nil {
		switch {
		case errors.Is(createErr, domain.ErrInvalidReferralCode):
			_ = c.AbortWithError(http.StatusBadRequest, errors.New("invalid referral code")).
				SetType(gin.ErrorTypePublic)
		case errors.Is(createErr, domain.ErrUsernameTaken):
			_ = c.AbortWithError(http.StatusConflict, errors.New("user with this login already exists")).
				SetType(gin.ErrorTypePublic)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, createErr).
				SetType(gin.ErrorTypePrivate)
		}
		return
	}

	c.Header("Authorization", "Bearer "+jwtToken)
	c.JSON(http.StatusOK, gin.H{"account": newAccountResponse(account)})
}

type LoginParams struct {
	Username string `binding:"required,min=1,max=32" json:"login"`
	Password string `binding:"required,min=6,max=72" json:"password"`
}

// Login POST RouteGroup + LoginRoute. Аутентификация по паре логин/пароль.
func (h *AuthHandler) Login(c *gin.Context) {
	var params LoginParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).
			SetType(gin.ErrorTypeBind)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	account, token, err := h.accountService.Login(ctx, service.LoginArgs{
		Username: params.Username,
		Password: params.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) || errors.Is(err, domain.ErrPasswordMissMatch) {
			_ = c.AbortWithError(http.StatusUnauthorized, errors.New("invalid credentials")).
				SetType(gin.ErrorTypePublic)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}
	c.Header("Authorization", "Bearer "+token)

	c.JSON(http.StatusOK, gin.H{"account": newAccountResponse(account)})
}
