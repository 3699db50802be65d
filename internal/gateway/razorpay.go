// Package gateway wraps the payment gateway's REST API behind a small client
// interface so services never touch HTTP or signature details directly.
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
)

// Remote payment statuses reported by the gateway.
const (
	RemoteStatusCaptured   = "captured"
	RemoteStatusAuthorized = "authorized"
	RemoteStatusFailed     = "failed"
)

// Order is a gateway checkout order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// PaymentInfo is the gateway's view of a payment.
type PaymentInfo struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
}

// Client is the gateway surface the engine depends on. Both calls are remote
// and bounded by the configured timeout.
type Client interface {
	// CreateOrder registers a checkout order for the given minor-unit amount
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)

	// FetchPayment retrieves the remote status of a payment
	FetchPayment(ctx context.Context, paymentID string) (*PaymentInfo, error)

	// VerifyCheckoutSignature checks the client-side checkout signature over
	// "orderID|paymentID" in constant time
	VerifyCheckoutSignature(orderID, paymentID, signature string) bool

	// VerifyWebhookSignature checks the webhook signature over the raw
	// request body in constant time
	VerifyWebhookSignature(body []byte, signature string) bool
}

type razorpayClient struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	httpClient    *http.Client
}

// NewClient builds a gateway client. timeout bounds every remote call; a call
// that exceeds it fails without mutating any engine state.
func NewClient(baseURL, keyID, keySecret, webhookSecret string, timeout time.Duration) Client {
	return &razorpayClient{
		baseURL:       baseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

func (c *razorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, err
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", bytes.NewReader(body), &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (c *razorpayClient) FetchPayment(ctx context.Context, paymentID string) (*PaymentInfo, error) {
	var info PaymentInfo
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

func (c *razorpayClient) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, data)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *razorpayClient) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	expected := Sign(orderID+"|"+paymentID, c.keySecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *razorpayClient) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the hex HMAC-SHA256 of payload with the given secret. The
// checkout signature is Sign("orderID|paymentID", keySecret).
func Sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
