// Package toss implements the billing gateway client against the Toss
// Payments API.
package toss

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domainerrors "github.com/petmily/billing-service/internal/domain/errors"
	"github.com/petmily/billing-service/internal/domain/gateway"
	"github.com/petmily/billing-service/internal/infrastructure/metrics"
	"github.com/petmily/billing-service/internal/retryx"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.tosspayments.com"
	apiVersion     = "v1"
)

// Config configures the gateway client. SecretKey authenticates every request;
// it is sent per call and never logged.
type Config struct {
	SecretKey string
	BaseURL   string
	Retry     retryx.Options
}

// Client calls the Toss Payments billing API through the retry executor.
type Client struct {
	secretKey string
	baseURL   string
	client    *http.Client
	executor  *retryx.Executor
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewClient creates a gateway client. The underlying http.Client carries no
// timeout of its own; per-attempt timeouts come from the retry executor.
func NewClient(cfg Config, m *metrics.Metrics, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		client:    &http.Client{},
		executor:  retryx.New(cfg.Retry),
		metrics:   m,
		logger:    logger,
	}
}

var _ gateway.Client = (*Client)(nil)

// IssueBillingKey exchanges an authorization code for a billing key.
// POST /v1/billing/authorizations/issue
func (c *Client) IssueBillingKey(ctx context.Context, authKey, customerKey string) (*gateway.BillingAuthorization, error) {
	c.logger.Info("issuing billing key",
		zap.String("customer_key", customerKey))

	body := map[string]string{
		"authKey":     authKey,
		"customerKey": customerKey,
	}

	res, err := c.post(ctx, "issue_billing_key", "/"+apiVersion+"/billing/authorizations/issue", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		BillingKey  string `json:"billingKey"`
		CustomerKey string `json:"customerKey"`
		CardCompany string `json:"cardCompany"`
		CardNumber  string `json:"cardNumber"`
		CardType    string `json:"cardType"`
	}
	if err := json.Unmarshal(res.Body, &resp); err != nil {
		return nil, fmt.Errorf("parse billing authorization response: %w", err)
	}

	c.logger.Info("billing key issued",
		zap.String("customer_key", resp.CustomerKey),
		zap.String("card_company", resp.CardCompany),
		zap.Int("retry_count", res.RetryCount))

	authz := &gateway.BillingAuthorization{
		BillingKey:  resp.BillingKey,
		CustomerKey: resp.CustomerKey,
	}
	if resp.CardNumber != "" || resp.CardCompany != "" {
		authz.Card = &gateway.CardInfo{
			Company:  resp.CardCompany,
			Number:   resp.CardNumber,
			CardType: resp.CardType,
		}
	}
	return authz, nil
}

// ChargeBilling charges a billing key. The order id is the gateway-side
// idempotency key for this charge attempt.
// POST /v1/billing/{billingKey}
func (c *Client) ChargeBilling(ctx context.Context, req *gateway.ChargeRequest) (*gateway.PaymentReceipt, error) {
	c.logger.Info("charging billing key",
		zap.String("order_id", req.OrderID),
		zap.Int64("amount", req.Amount))

	body := map[string]interface{}{
		"customerKey": req.CustomerKey,
		"amount":      req.Amount,
		"orderId":     req.OrderID,
		"orderName":   req.OrderName,
	}

	res, err := c.post(ctx, "charge_billing", "/"+apiVersion+"/billing/"+req.BillingKey, body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		PaymentKey  string `json:"paymentKey"`
		OrderID     string `json:"orderId"`
		Status      string `json:"status"`
		TotalAmount int64  `json:"totalAmount"`
		ApprovedAt  string `json:"approvedAt"`
		Card        *struct {
			Company  string `json:"company"`
			Number   string `json:"number"`
			CardType string `json:"cardType"`
		} `json:"card"`
	}
	if err := json.Unmarshal(res.Body, &resp); err != nil {
		return nil, fmt.Errorf("parse charge response: %w", err)
	}

	receipt := &gateway.PaymentReceipt{
		PaymentKey: resp.PaymentKey,
		OrderID:    resp.OrderID,
		Status:     resp.Status,
		Amount:     resp.TotalAmount,
	}
	if resp.ApprovedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, resp.ApprovedAt); err == nil {
			receipt.ApprovedAt = &parsed
		}
	}
	if resp.Card != nil {
		receipt.Card = &gateway.CardInfo{
			Company:  resp.Card.Company,
			Number:   resp.Card.Number,
			CardType: resp.Card.CardType,
		}
	}

	c.logger.Info("billing charge successful",
		zap.String("order_id", receipt.OrderID),
		zap.String("payment_key", receipt.PaymentKey),
		zap.Int("retry_count", res.RetryCount))

	return receipt, nil
}

// CancelPayment cancels a completed payment, fully when amount is nil.
// POST /v1/payments/{paymentKey}/cancel
func (c *Client) CancelPayment(ctx context.Context, paymentKey, reason string, amount *int64) (*gateway.CancellationReceipt, error) {
	c.logger.Info("cancelling payment",
		zap.String("payment_key", paymentKey),
		zap.String("reason", reason))

	body := map[string]interface{}{
		"cancelReason": reason,
	}
	if amount != nil {
		body["cancelAmount"] = *amount
	}

	res, err := c.post(ctx, "cancel_payment", "/"+apiVersion+"/payments/"+paymentKey+"/cancel", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		PaymentKey string `json:"paymentKey"`
		Status     string `json:"status"`
		Cancels    []struct {
			CancelAmount int64 `json:"cancelAmount"`
		} `json:"cancels"`
	}
	if err := json.Unmarshal(res.Body, &resp); err != nil {
		return nil, fmt.Errorf("parse cancellation response: %w", err)
	}

	receipt := &gateway.CancellationReceipt{
		PaymentKey: resp.PaymentKey,
		Status:     resp.Status,
	}
	for _, cancel := range resp.Cancels {
		receipt.CancelledAmount += cancel.CancelAmount
	}

	c.logger.Info("payment cancelled",
		zap.String("payment_key", receipt.PaymentKey),
		zap.Int64("cancelled_amount", receipt.CancelledAmount))

	return receipt, nil
}

// post marshals the payload and runs the request through the retry executor,
// authenticating each attempt with the secret key.
func (c *Client) post(ctx context.Context, operation, path string, payload interface{}) (*retryx.Result, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.secretKey + ":"))
	url := c.baseURL + path

	res, err := c.executor.Execute(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Basic "+auth)
		req.Header.Set("Content-Type", "application/json")
		return c.client.Do(req)
	})

	if res != nil && res.RetryCount > 0 {
		c.metrics.GatewayRetriesTotal.WithLabelValues(operation).Add(float64(res.RetryCount))
	}

	if err != nil {
		c.metrics.GatewayRequestsTotal.WithLabelValues(operation, "error").Inc()
		gwErr := gatewayError(res, err)
		c.logger.Error("gateway request failed",
			zap.String("operation", operation),
			zap.Error(gwErr))
		return nil, gwErr
	}

	c.metrics.GatewayRequestsTotal.WithLabelValues(operation, "success").Inc()
	return res, nil
}

// gatewayError builds a GatewayError carrying the gateway's own code and
// message so they can be surfaced to the caller verbatim.
func gatewayError(res *retryx.Result, err error) *domainerrors.GatewayError {
	gwErr := &domainerrors.GatewayError{
		Message: "payment gateway request failed: " + err.Error(),
	}
	if res == nil {
		return gwErr
	}
	gwErr.HTTPStatus = res.Status
	if m, ok := res.Data.(map[string]interface{}); ok {
		if code, ok := m["code"].(string); ok {
			gwErr.Code = code
		}
		if message, ok := m["message"].(string); ok && message != "" {
			gwErr.Message = message
		}
	}
	return gwErr
}
