// Package payment talks to the Razorpay gateway: creating provider orders
// ahead of the hosted checkout widget and verifying the signature the widget
// reports back.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ProviderOrder is the subset of the Razorpay order object we use. Amount is
// in paise (minor currency units).
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(keyID, keySecret, baseURL string, logger *zap.Logger) *Client {
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// CreateOrder registers a pending charge with the gateway. amountRupees is
// converted to paise before the call. Every invocation creates a fresh
// provider order; there is no idempotency key, so retried checkouts leave
// unconsumed orders on the provider side.
func (c *Client) CreateOrder(ctx context.Context, amountRupees float64, receipt string) (*ProviderOrder, error) {
	paise := int64(math.Round(amountRupees * 100))

	body, err := json.Marshal(createOrderRequest{
		Amount:   paise,
		Currency: "INR",
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay order creation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Razorpay order creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return nil, fmt.Errorf("razorpay returned status %d", resp.StatusCode)
	}

	var order ProviderOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode razorpay order: %w", err)
	}

	c.logger.Info("Provider order created",
		zap.String("provider_order_id", order.ID),
		zap.Int64("amount_paise", order.Amount),
	)
	return &order, nil
}

// VerifySignature recomputes HMAC-SHA256(secret, orderID|paymentID) and
// compares the hex digest against the supplied signature. This check is the
// sole gate between a client-reported payment callback and a confirmed
// payment. A valid (orderID, paymentID, signature) triple verifies again if
// replayed; single-use enforcement is a known gap.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
