package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"carrental/config"
	"carrental/infras/gateway"
	"carrental/infras/otel/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serverKey = "SB-Mid-server-test"

func newConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.External.Gateway.BaseURL = baseURL
	cfg.External.Gateway.ServerKey = serverKey
	cfg.External.Gateway.Timeout = 200 * time.Millisecond
	cfg.External.Gateway.Breaker.MaxFailures = 3
	cfg.External.Gateway.Breaker.OpenTimeout = time.Minute

	return cfg
}

func transactionRequest() gateway.TransactionRequest {
	return gateway.TransactionRequest{
		OrderID:     "order-1",
		GrossAmount: 1500000,
		Customer:    gateway.Customer{Name: "Rina", Email: "rina@example.com"},
		Items:       []gateway.Item{{ID: "vehicle-1", Name: "Avanza", Price: 300000, Quantity: 5}},
	}
}

func TestGateway_CreateTransaction(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantToken string
		wantErr   error
	}{
		{
			name: "created",
			handler: func(w http.ResponseWriter, r *http.Request) {
				user, password, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, serverKey, user)
				assert.Empty(t, password)
				assert.Equal(t, "/snap/v1/transactions", r.URL.Path)

				var body map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

				details, _ := body["transaction_details"].(map[string]any)
				assert.Equal(t, "order-1", details["order_id"])
				assert.InDelta(t, 1500000, details["gross_amount"], 0)

				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"token":"snap-token","redirect_url":"https://pay.example.com/snap-token"}`))
			},
			wantToken: "snap-token",
		},
		{
			name: "declined",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error_messages":["transaction_details.gross_amount is not equal to the sum of item_details"]}`))
			},
			wantErr: gateway.ErrRejected,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: gateway.ErrUnavailable,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(time.Second):
				case <-r.Context().Done():
				}

				w.WriteHeader(http.StatusCreated)
			},
			wantErr: gateway.ErrUnavailable,
		},
		{
			name: "missing token",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{}`))
			},
			wantErr: gateway.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := gateway.New(newConfig(server.URL), mocks.NewOtel())

			session, err := client.CreateTransaction(context.Background(), transactionRequest())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, session.Token)
			assert.NotEmpty(t, session.RedirectURL)
		})
	}
}

func TestGateway_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := gateway.New(newConfig(server.URL), mocks.NewOtel())

	for range 5 {
		_, err := client.CreateTransaction(context.Background(), transactionRequest())
		assert.ErrorIs(t, err, gateway.ErrUnavailable)
	}

	assert.Equal(t, int32(3), calls.Load())
}

func TestGateway_RejectionsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status_message":"card declined"}`))
	}))
	defer server.Close()

	client := gateway.New(newConfig(server.URL), mocks.NewOtel())

	for range 5 {
		_, err := client.CreateTransaction(context.Background(), transactionRequest())
		assert.ErrorIs(t, err, gateway.ErrRejected)
	}

	assert.Equal(t, int32(5), calls.Load())
}

func TestGateway_VerifySignature(t *testing.T) {
	client := gateway.New(newConfig("http://unused"), mocks.NewOtel())
	signature := gateway.Signature("order-1", "200", "1500000.00", serverKey)

	assert.True(t, client.VerifySignature("order-1", "200", "1500000.00", signature))
	assert.False(t, client.VerifySignature("order-1", "200", "1.00", signature))
	assert.False(t, client.VerifySignature("order-1", "200", "1500000.00", "deadbeef"))
}
