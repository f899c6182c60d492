package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const (
	testSecret    = "GoiwPZYGwJ4rLD099MZKTTdX"
	testOrderID   = "order_ABC123"
	testPaymentID = "pay_XYZ789"
)

func signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	client := NewClient("key_test", testSecret, "https://api.razorpay.com", zap.NewNop())

	sig := signature(testSecret, testOrderID, testPaymentID)
	if !client.VerifySignature(testOrderID, testPaymentID, sig) {
		t.Errorf("expected valid signature for %s|%s", testOrderID, testPaymentID)
	}
}

func TestVerifySignature_AnyMutationFlipsResult(t *testing.T) {
	client := NewClient("key_test", testSecret, "https://api.razorpay.com", zap.NewNop())
	sig := signature(testSecret, testOrderID, testPaymentID)

	cases := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
	}{
		{"mutated order id", "order_ABC124", testPaymentID, sig},
		{"mutated payment id", testOrderID, "pay_XYZ788", sig},
		{"mutated signature", testOrderID, testPaymentID, mutateHex(sig)},
		{"empty signature", testOrderID, testPaymentID, ""},
		{"swapped ids", testPaymentID, testOrderID, sig},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if client.VerifySignature(tc.orderID, tc.paymentID, tc.signature) {
				t.Errorf("expected verification to fail")
			}
		})
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	client := NewClient("key_test", "some-other-secret", "https://api.razorpay.com", zap.NewNop())
	sig := signature(testSecret, testOrderID, testPaymentID)

	if client.VerifySignature(testOrderID, testPaymentID, sig) {
		t.Errorf("expected verification to fail under a different secret")
	}
}

func mutateHex(s string) string {
	b := []byte(s)
	if b[0] == 'a' {
		b[0] = 'b'
	} else {
		b[0] = 'a'
	}
	return string(b)
}

func TestCreateOrder_ConvertsRupeesToPaise(t *testing.T) {
	var gotBody createOrderRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" {
			t.Errorf("expected path /v1/orders, got %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key_test" || pass != testSecret {
			t.Errorf("expected basic auth with key id and secret")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(ProviderOrder{
			ID:       "order_generated",
			Amount:   gotBody.Amount,
			Currency: gotBody.Currency,
			Receipt:  gotBody.Receipt,
			Status:   "created",
		})
	}))
	defer server.Close()

	client := NewClient("key_test", testSecret, server.URL, zaptest.NewLogger(t))

	order, err := client.CreateOrder(context.Background(), 150, "rcpt_1")
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if gotBody.Amount != 15000 {
		t.Errorf("expected 150 rupees to convert to 15000 paise, got %d", gotBody.Amount)
	}
	if gotBody.Currency != "INR" {
		t.Errorf("expected currency INR, got %s", gotBody.Currency)
	}
	if order.ID != "order_generated" {
		t.Errorf("expected provider order id to round-trip, got %s", order.ID)
	}
	if order.Amount != 15000 {
		t.Errorf("expected provider order amount 15000, got %d", order.Amount)
	}
}

func TestCreateOrder_FractionalRupees(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body createOrderRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Amount != 5550 {
			t.Errorf("expected 55.50 rupees to convert to 5550 paise, got %d", body.Amount)
		}
		json.NewEncoder(w).Encode(ProviderOrder{ID: "order_x", Amount: body.Amount, Currency: "INR"})
	}))
	defer server.Close()

	client := NewClient("key_test", testSecret, server.URL, zap.NewNop())
	if _, err := client.CreateOrder(context.Background(), 55.50, "rcpt_2"); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
}

func TestCreateOrder_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"description":"Authentication failed"}}`))
	}))
	defer server.Close()

	client := NewClient("key_bad", "secret_bad", server.URL, zap.NewNop())
	if _, err := client.CreateOrder(context.Background(), 150, "rcpt_3"); err == nil {
		t.Errorf("expected error on upstream 401")
	}
}
