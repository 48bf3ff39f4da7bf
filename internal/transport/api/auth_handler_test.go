package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/logger"
	"github.com/fsdevblog/credit-ledger/internal/service"
	"github.com/fsdevblog/credit-ledger/internal/service/tokens"
	"github.com/fsdevblog/credit-ledger/internal/transport/api/mocks"
	"github.com/fsdevblog/credit-ledger/internal/transport/api/testutils"
)

type AuthHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockAccountService *mocks.MockAccountServicer
	jwtSecret          []byte
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}

func (s *AuthHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())

	s.mockAccountService = mocks.NewMockAccountServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	router, err := New(RouterArgs{
		Logger:         logger.New(os.Stdout),
		AccountService: s.mockAccountService,
		JWTSecretKey:   s.jwtSecret,
	})
	s.Require().NoError(err)
	s.router = router
}

func (s *AuthHandlerTestSuite) TestRegister() {
	account := &domain.Account{ID: "u1", Username: "alice", CreditBalance: 100}

	// Моки
	s.mockAccountService.EXPECT().
		Register(gomock.Any(), service.RegisterArgs{Username: "alice", Password: "secret1", ReferralCode: "REF12345"}).
		Return(account, "jwt-token", nil).Times(1)
	s.mockAccountService.EXPECT().
		Register(gomock.Any(), service.RegisterArgs{Username: "bob", Password: "secret1", ReferralCode: "NOPE"}).
		Return(nil, "", fmt.Errorf("register: %w", domain.ErrInvalidReferralCode)).Times(1)
	s.mockAccountService.EXPECT().
		Register(gomock.Any(), service.RegisterArgs{Username: "carol", Password: "secret1"}).
		Return(nil, "", fmt.Errorf("create account: %w", domain.ErrUsernameTaken)).Times(1)
	s.mockAccountService.EXPECT().
		Register(gomock.Any(), service.RegisterArgs{Username: "grace", Password: "secret1", ReferralCode: "REF12345"}).
		Return(nil, "", fmt.Errorf("create reward: %w", domain.ErrDuplicateKey)).Times(1)
	s.mockAccountService.EXPECT().
		Register(gomock.Any(), service.RegisterArgs{Username: "dave", Password: "secret1"}).
		Return(nil, "", errors.New("connection refused")).Times(1)

	authToken, err := tokens.GenerateUserJWT("u9", time.Hour, s.jwtSecret)
	s.Require().NoError(err)

	cases := []struct {
		name       string
		body       string
		authToken  string
		wantStatus int
		wantToken  bool
	}{
		{name: "with referral code", body: `{"login":"alice","password":"secret1","referralCode":"REF12345"}`,
			wantStatus: http.StatusOK, wantToken: true},
		{name: "invalid referral code", body: `{"login":"bob","password":"secret1","referralCode":"NOPE"}`,
			wantStatus: http.StatusBadRequest},
		{name: "duplicate login", body: `{"login":"carol","password":"secret1"}`, wantStatus: http.StatusConflict},
		{name: "other duplicate key is not a login conflict",
			body:       `{"login":"grace","password":"secret1","referralCode":"REF12345"}`,
			wantStatus: http.StatusInternalServerError},
		{name: "internal error", body: `{"login":"dave","password":"secret1"}`,
			wantStatus: http.StatusInternalServerError},
		{name: "short password", body: `{"login":"erin","password":"123"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "login over bytes", body: fmt.Sprintf(`{"login":%q,"password":"secret1"}`,
			testutils.GenerateOverBytesUnderRunes(20)), wantStatus: http.StatusUnprocessableEntity},
		{name: "invalid json", body: `{"login":`, wantStatus: http.StatusBadRequest},
		{name: "already authorized", body: `{"login":"frank","password":"secret1"}`, authToken: authToken,
			wantStatus: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			opts := []func(*testutils.RequestOptions){testutils.WithHeader("Content-Type", "application/json")}
			if tc.authToken != "" {
				opts = append(opts, testutils.WithHeader("Authorization", "Bearer "+tc.authToken))
			}
			res, reqErr := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + RegisterRoute,
				Body:   bytes.NewBufferString(tc.body),
			}, opts...)
			s.Require().NoError(reqErr)
			defer res.Body.Close()

			s.Equal(tc.wantStatus, res.StatusCode)
			if tc.wantToken {
				s.Equal("Bearer jwt-token", res.Header.Get("Authorization"))
				var body struct {
					Account AccountResponse `json:"account"`
				}
				s.Require().NoError(json.NewDecoder(res.Body).Decode(&body))
				s.Equal("u1", body.Account.ID)
				s.Equal(int64(100), body.Account.CreditBalance)
			}
		})
	}
}

func (s *AuthHandlerTestSuite) TestLogin() {
	s.mockAccountService.EXPECT().
		Login(gomock.Any(), service.LoginArgs{Username: "alice", Password: "secret1"}).
		Return(&domain.Account{ID: "u1", Username: "alice"}, "jwt-token", nil).Times(1)
	s.mockAccountService.EXPECT().
		Login(gomock.Any(), service.LoginArgs{Username: "alice", Password: "wrong12"}).
		Return(nil, "", domain.ErrPasswordMissMatch).Times(1)
	s.mockAccountService.EXPECT().
		Login(gomock.Any(), service.LoginArgs{Username: "ghost", Password: "secret1"}).
		Return(nil, "", fmt.Errorf("find: %w", domain.ErrRecordNotFound)).Times(1)

	cases := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "ok", body: `{"login":"alice","password":"secret1"}`, wantStatus: http.StatusOK},
		{name: "wrong password", body: `{"login":"alice","password":"wrong12"}`, wantStatus: http.StatusUnauthorized},
		{name: "unknown login", body: `{"login":"ghost","password":"secret1"}`, wantStatus: http.StatusUnauthorized},
		{name: "empty body", body: `{}`, wantStatus: http.StatusBadRequest},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			res, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + LoginRoute,
				Body:   bytes.NewBufferString(tc.body),
			}, testutils.WithHeader("Content-Type", "application/json"))
			s.Require().NoError(err)
			defer res.Body.Close()
			s.Equal(tc.wantStatus, res.StatusCode)
			if tc.wantStatus == http.StatusOK {
				s.Equal("Bearer jwt-token", res.Header.Get("Authorization"))
			}
		})
	}
}
