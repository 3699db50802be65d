package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifyCheckoutSignature(t *testing.T) {
	c := NewClient("http://unused", "key", "secret", "whsecret", time.Second)

	valid := Sign("order_123|pay_456", "secret")

	assert.True(t, c.VerifyCheckoutSignature("order_123", "pay_456", valid))
	assert.False(t, c.VerifyCheckoutSignature("order_123", "pay_456", "deadbeef"))
	assert.False(t, c.VerifyCheckoutSignature("order_999", "pay_456", valid))
	assert.False(t, c.VerifyCheckoutSignature("order_123", "pay_456", ""))
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := NewClient("http://unused", "key", "secret", "whsecret", time.Second)

	body := []byte(`{"event":"payment.captured","payload":{}}`)
	valid := Sign(string(body), "whsecret")

	assert.True(t, c.VerifyWebhookSignature(body, valid))
	assert.False(t, c.VerifyWebhookSignature(body, Sign(string(body), "wrong")))
	assert.False(t, c.VerifyWebhookSignature([]byte(`{"event":"tampered"}`), valid))
}

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(200000), req["amount"])
		assert.Equal(t, "INR", req["currency"])

		json.NewEncoder(w).Encode(Order{
			ID:       "order_abc",
			Amount:   200000,
			Currency: "INR",
			Receipt:  req["receipt"].(string),
			Status:   "created",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret", "whsecret", time.Second)

	order, err := c.CreateOrder(context.Background(), 200000, "INR", "receipt_1", map[string]string{"course": "c1"})
	assert.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(200000), order.Amount)
}

func TestFetchPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay_123", r.URL.Path)
		json.NewEncoder(w).Encode(PaymentInfo{
			ID:      "pay_123",
			OrderID: "order_abc",
			Status:  RemoteStatusCaptured,
			Amount:  200000,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret", "whsecret", time.Second)

	info, err := c.FetchPayment(context.Background(), "pay_123")
	assert.NoError(t, err)
	assert.Equal(t, RemoteStatusCaptured, info.Status)
}

func TestFetchPayment_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret", "whsecret", time.Second)

	_, err := c.FetchPayment(context.Background(), "pay_123")
	assert.Error(t, err)
}
