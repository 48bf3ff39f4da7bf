// Package crypto клиент API платежей крипто процессора.
package crypto

import (
	"bytes"
	"context"
	"encoding/json"
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
	RouteCharges = "/charges"
	RouteCharge  = "/charges/%s"

	APIVersion = "2018-03-22"
)

type money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type createChargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	LocalPrice  money             `json:"local_price"`
	PricingType string            `json:"pricing_type"`
	Metadata    map[string]string `json:"metadata"`
	RedirectURL string            `json:"redirect_url"`
	CancelURL   string            `json:"cancel_url"`
}

type timelineEntry struct {
	Status string `json:"status"`
}

type chargeResponse struct {
	Data struct {
		ID        string          `json:"id"`
		HostedURL string          `json:"hosted_url"`
		Timeline  []timelineEntry `json:"timeline"`
	} `json:"data"`
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

// CreateCharge создает платеж с фиксированной ценой в USD.
func (c *Client) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	credits := strconv.FormatInt(req.Credits, 10)
	body, marshalErr := json.Marshal(createChargeRequest{
		Name:        credits + " Credits",
		Description: "Purchase " + credits + " credits",
		LocalPrice:  money{Amount: req.Amount.StringFixed(2), Currency: "USD"}, //nolint:mnd
		PricingType: "fixed_price",
		Metadata: map[string]string{
			webhook.MetadataAccountID:    req.AccountID,
			webhook.MetadataCreditsToAdd: credits,
		},
		RedirectURL: req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal charge: %s", marshalErr.Error())
	}

	httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RouteCharges, bytes.NewReader(body))
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	var resp chargeResponse
	if err := processor.Do(c.httpClient, httpReq, &resp); err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	if resp.Data.ID == "" || resp.Data.HostedURL == "" {
		return nil, errors.New("create charge: empty id or hosted_url in response")
	}
	return &domain.Charge{ID: resp.Data.ID, RedirectURL: resp.Data.HostedURL}, nil
}

// ChargeState состояние платежа по последней записи в его timeline.
func (c *Client) ChargeState(ctx context.Context, id string) (domain.ChargeState, error) {
	httpReq, reqErr := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+fmt.Sprintf(RouteCharge, url.PathEscape(id)),
		nil,
	)
	if reqErr != nil {
		return "", fmt.Errorf("create request: %s", reqErr.Error())
	}
	c.authorize(httpReq)

	var resp chargeResponse
	if err := processor.Do(c.httpClient, httpReq, &resp); err != nil {
		return "", fmt.Errorf("get charge %s: %w", id, err)
	}
	if len(resp.Data.Timeline) == 0 {
		return domain.ChargeStatePending, nil
	}

	switch resp.Data.Timeline[len(resp.Data.Timeline)-1].Status {
	case "COMPLETED", "CONFIRMED", "RESOLVED":
		return domain.ChargeStatePaid, nil
	case "EXPIRED", "CANCELED":
		return domain.ChargeStateExpired, nil
	default:
		return domain.ChargeStatePending, nil
	}
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("X-CC-Api-Key", c.apiKey)
	req.Header.Set("X-CC-Version", APIVersion)
}
