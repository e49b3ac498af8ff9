package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"

	"github.com/shopspring/decimal"
)

var ErrGatewayRejected = errors.New("payment gateway rejected the request")

// CreateOrderRequest asks the gateway to open an order the client SDK can pay.
type CreateOrderRequest struct {
	AmountMinorUnits int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Receipt          string            `json:"receipt"`
	Notes            map[string]string `json:"notes,omitempty"`
}

// GatewayOrder is the gateway's view of an order.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client talks to the payment gateway's REST API with basic auth.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client:    &http.Client{Timeout: timeout},
	}
}

// KeyID is the public key the client SDK is opened with.
func (c *Client) KeyID() string { return c.keyID }

// CreateOrder registers an order with the gateway. The amount is in minor units.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("payment client is not configured")
	}
	if req.AmountMinorUnits <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrGatewayRejected)
	}

	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var ge gatewayError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Description != "" {
			return nil, fmt.Errorf("%w: status=%d code=%s: %s", ErrGatewayRejected, res.StatusCode, ge.Error.Code, ge.Error.Description)
		}
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrGatewayRejected, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var order GatewayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode gateway order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: response carried no order id", ErrGatewayRejected)
	}
	return &order, nil
}

// ToMinorUnits converts an amount to the smallest currency unit (paise for INR).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
