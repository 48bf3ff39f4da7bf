// Package card клиент API checkout-сессий карточного процессора.
package card

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/transport/processor"
	"github.com/fsdevblog/credit-ledger/internal/transport/webhook"
)

const (
	RouteSessions = "/v1/checkout/sessions"
	RouteSession  = "/v1/checkout/sessions/%s"

	currency = "usd"
)

type sessionResponse struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: processor.DefaultHTTPClient(),
	}
}

// CreateCharge создает checkout-сессию. Идентификатор и кредиты аккаунта передаются в metadata и вернутся в
// вебхуке об оплате.
func (c *Client) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	cents := req.Amount.Shift(2).Round(0).IntPart() //nolint:mnd
	credits := strconv.FormatInt(req.Credits, 10)

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(cents, 10))
	form.Set("line_items[0][price_data][product_data][name]", credits+" Credits")
	form.Set("success_url", req.SuccessURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.AccountID)
	form.Set("metadata["+webhook.MetadataAccountID+"]", req.AccountID)
	form.Set("metadata["+webhook.MetadataCreditsToAdd+"]", credits)

	httpReq, reqErr := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+RouteSessions,
		strings.NewReader(form.Encode()),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.authorize(httpReq)

	var resp sessionResponse
	if err := processor.Do(c.httpClient, httpReq, &resp); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if resp.ID == "" || resp.URL == "" {
		return nil, errors.New("create checkout session: empty id or url in response")
	}
	return &domain.Charge{ID: resp.ID, RedirectURL: resp.URL}, nil
}

// ChargeState текущее состояние оплаты сессии.
func (c *Client) ChargeState(ctx context.Context, id string) (domain.ChargeState, error) {
	httpReq, reqErr := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+fmt.Sprintf(RouteSession, url.PathEscape(id)),
		nil,
	)
	if reqErr != nil {
		return "", fmt.Errorf("create request: %s", reqErr.Error())
	}
	c.authorize(httpReq)

	var resp sessionResponse
	if err := processor.Do(c.httpClient, httpReq, &resp); err != nil {
		return "", fmt.Errorf("get checkout session %s: %w", id, err)
	}

	switch {
	case resp.PaymentStatus == "paid":
		return domain.ChargeStatePaid, nil
	case resp.Status == "expired":
		return domain.ChargeStateExpired, nil
	default:
		return domain.ChargeStatePending, nil
	}
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
