// Package payment is the checkout-provider boundary: one interface, one HTTP
// implementation. Everything provider-specific (auth scheme, endpoint shape,
// idempotence header) stays behind it.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/logging"
)

// Checkout is an opened provider payment: its id (which the success callback
// echoes back) and the URL the buyer is redirected to.
type Checkout struct {
	ProviderID  string
	RedirectURL string
}

type Client interface {
	CreateCheckout(ctx context.Context, amount int, currency, returnURL, description string) (Checkout, error)
}

type HTTPConfig struct {
	BaseURL    string
	ShopID     string
	ShopSecret string
	Timeout    time.Duration
}

type HTTPClient struct {
	log        *logging.Logger
	cfg        HTTPConfig
	httpClient *http.Client
}

func NewHTTPClient(cfg HTTPConfig, log *logging.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPClient{
		log:        log.With("service", "payment"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type createRequest struct {
	Amount       amount       `json:"amount"`
	Capture      bool         `json:"capture"`
	Confirmation confirmation `json:"confirmation"`
	Description  string       `json:"description"`
}

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmation struct {
	Type      string `json:"type"`
	ReturnURL string `json:"return_url"`
}

type createResponse struct {
	ID           string `json:"id"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
}

func (c *HTTPClient) CreateCheckout(ctx context.Context, amt int, currency, returnURL, description string) (Checkout, error) {
	body, err := json.Marshal(createRequest{
		Amount:       amount{Value: strconv.Itoa(amt), Currency: currency},
		Capture:      true,
		Confirmation: confirmation{Type: "redirect", ReturnURL: returnURL},
		Description:  description,
	})
	if err != nil {
		return Checkout{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v3/payments", bytes.NewReader(body))
	if err != nil {
		return Checkout{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	req.SetBasicAuth(c.cfg.ShopID, c.cfg.ShopSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("checkout request failed", "err", err)
		return Checkout{}, apperr.Wrap(apperr.GatewayUnavailable, "payment service is unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.log.Error("checkout request rejected", "status", resp.StatusCode)
		return Checkout{}, apperr.New(apperr.GatewayUnavailable, "payment service is unavailable")
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Checkout{}, apperr.Wrap(apperr.GatewayUnavailable, "payment service is unavailable", err)
	}
	if out.ID == "" || out.Confirmation.ConfirmationURL == "" {
		return Checkout{}, apperr.New(apperr.GatewayUnavailable, "payment service is unavailable")
	}
	return Checkout{ProviderID: out.ID, RedirectURL: out.Confirmation.ConfirmationURL}, nil
}
