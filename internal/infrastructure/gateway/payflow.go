package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appgateway "github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	"github.com/pixelmuse/pixelmuse/internal/shared/config"
	"github.com/pixelmuse/pixelmuse/internal/shared/errors"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// PayFlow provider status codes, as delivered in checkout lookups and
// webhooks.
const (
	payflowStatusPaid      = "00"
	payflowStatusCancelled = "01"
	payflowStatusFailed    = "02"
	payflowStatusPending   = "03"
)

// PayFlowClient talks to the PayFlow REST API. Webhook payloads are
// authenticated with an HMAC-SHA256 signature over the raw body, hex
// encoded in the X-Payflow-Signature header.
type PayFlowClient struct {
	baseURL       string
	apiKey        string
	signingSecret []byte
	httpClient    *http.Client
	logger        logger.Interface
}

func NewPayFlowClient(cfg *config.GatewayConfig, logger logger.Interface) *PayFlowClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &PayFlowClient{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		signingSecret: []byte(cfg.SigningSecret),
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

func (c *PayFlowClient) Name() string {
	return "payflow"
}

type payflowCheckoutRequest struct {
	OrderCode   string `json:"order_code"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	BuyerEmail  string `json:"buyer_email,omitempty"`
	ReturnURL   string `json:"return_url"`
	WebhookURL  string `json:"webhook_url"`
	ExpiresIn   int64  `json:"expires_in_seconds"`
}

type payflowCheckoutResponse struct {
	ProviderRef string `json:"provider_ref"`
	CheckoutURL string `json:"checkout_url"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (c *PayFlowClient) CreateCheckout(ctx context.Context, req appgateway.CheckoutRequest) (*appgateway.CheckoutSession, error) {
	body := payflowCheckoutRequest{
		OrderCode:   req.OrderCode,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Description: req.Description,
		BuyerEmail:  req.BuyerEmail,
		ReturnURL:   req.ReturnURL,
		WebhookURL:  req.WebhookURL,
		ExpiresIn:   int64(req.ExpiresIn.Seconds()),
	}

	var resp payflowCheckoutResponse
	if err := c.do(ctx, http.MethodPost, "/v1/checkouts", body, &resp); err != nil {
		return nil, err
	}

	return &appgateway.CheckoutSession{
		ProviderRef: resp.ProviderRef,
		CheckoutURL: resp.CheckoutURL,
		ExpiresAt:   time.Unix(resp.ExpiresAt, 0).UTC(),
	}, nil
}

type payflowPaymentResponse struct {
	OrderCode     string `json:"order_code"`
	ProviderRef   string `json:"provider_ref"`
	Status        string `json:"status"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
	BuyerEmail    string `json:"buyer_email"`
	PaidAt        int64  `json:"paid_at"`
}

func (c *PayFlowClient) GetPaymentInfo(ctx context.Context, orderCode string) (*appgateway.PaymentInfo, error) {
	var resp payflowPaymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/checkouts/"+orderCode, nil, &resp); err != nil {
		return nil, err
	}

	info := &appgateway.PaymentInfo{
		OrderCode:     resp.OrderCode,
		ProviderRef:   resp.ProviderRef,
		Status:        c.mapStatus(resp.Status, resp.OrderCode),
		AmountCents:   resp.AmountCents,
		Currency:      resp.Currency,
		PaymentMethod: resp.PaymentMethod,
		BuyerEmail:    resp.BuyerEmail,
	}
	if resp.PaidAt > 0 {
		paidAt := time.Unix(resp.PaidAt, 0).UTC()
		info.PaidAt = &paidAt
	}

	return info, nil
}

func (c *PayFlowClient) CancelCheckout(ctx context.Context, orderCode string) error {
	return c.do(ctx, http.MethodPost, "/v1/checkouts/"+orderCode+"/cancel", nil, nil)
}

type payflowWebhookPayload struct {
	OrderCode     string                 `json:"order_code"`
	ProviderRef   string                 `json:"provider_ref"`
	Status        string                 `json:"status"`
	AmountCents   int64                  `json:"amount_cents"`
	Currency      string                 `json:"currency"`
	PaymentMethod string                 `json:"payment_method"`
	BuyerEmail    string                 `json:"buyer_email"`
	OccurredAt    int64                  `json:"occurred_at"`
	Extra         map[string]interface{} `json:"extra"`
}

// VerifyWebhook authenticates the raw payload before parsing it. The
// comparison is constant time.
func (c *PayFlowClient) VerifyWebhook(rawPayload []byte, signature string) (*appgateway.WebhookData, error) {
	if signature == "" {
		return nil, errors.NewSignatureError("missing webhook signature")
	}

	mac := hmac.New(sha256.New, c.signingSecret)
	mac.Write(rawPayload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, errors.NewSignatureError("webhook signature mismatch")
	}

	var payload payflowWebhookPayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		return nil, errors.NewValidationError("malformed webhook payload", err.Error())
	}
	if payload.OrderCode == "" {
		return nil, errors.NewValidationError("webhook payload missing order code")
	}

	occurredAt := time.Unix(payload.OccurredAt, 0).UTC()
	if payload.OccurredAt == 0 {
		occurredAt = time.Now().UTC()
	}

	raw := payload.Extra
	if raw == nil {
		raw = make(map[string]interface{})
	}
	raw["provider_ref"] = payload.ProviderRef
	raw["provider_status"] = payload.Status

	return &appgateway.WebhookData{
		OrderCode:     payload.OrderCode,
		ProviderRef:   payload.ProviderRef,
		Status:        c.mapStatus(payload.Status, payload.OrderCode),
		AmountCents:   payload.AmountCents,
		Currency:      payload.Currency,
		PaymentMethod: payload.PaymentMethod,
		BuyerEmail:    payload.BuyerEmail,
		OccurredAt:    occurredAt,
		Raw:           raw,
	}, nil
}

// mapStatus normalizes PayFlow status codes. Unknown codes map to failed so
// nothing downstream treats an unrecognized state as money received.
func (c *PayFlowClient) mapStatus(status, orderCode string) appgateway.PaymentStatus {
	switch status {
	case payflowStatusPaid, "PAID":
		return appgateway.PaymentStatusPaid
	case payflowStatusCancelled, "CANCELLED":
		return appgateway.PaymentStatusCancelled
	case payflowStatusFailed, "FAILED":
		return appgateway.PaymentStatusFailed
	case payflowStatusPending, "PENDING":
		return appgateway.PaymentStatusPending
	default:
		c.logger.Warnw("unknown payflow status code",
			"status", status,
			"order_code", orderCode,
		)
		return appgateway.PaymentStatusFailed
	}
}

func (c *PayFlowClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewGatewayError(fmt.Sprintf("payflow request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.NewGatewayError(fmt.Sprintf("failed to read payflow response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warnw("payflow request rejected",
			"method", method,
			"path", path,
			"status_code", resp.StatusCode,
		)
		return errors.NewGatewayError(fmt.Sprintf("payflow returned status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.NewGatewayError(fmt.Sprintf("malformed payflow response: %v", err))
		}
	}

	return nil
}
