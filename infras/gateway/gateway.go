package gateway

//go:generate go run go.uber.org/mock/mockgen -source=./gateway.go -destination=./mocks/gateway_mock.go -package=mocks

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"carrental/config"
	"carrental/infras/otel"
	"carrental/shared/constant"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const (
	transactionsPath = "/snap/v1/transactions"
	maxErrorBody     = 4096
)

var (
	// ErrUnavailable covers network failures, timeouts, 5xx answers and an open breaker.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrRejected is a structured 4xx decline.
	ErrRejected = errors.New("payment gateway rejected the transaction")
)

type Customer struct {
	Name  string `json:"first_name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type TransactionRequest struct {
	OrderID     string
	GrossAmount int64
	Customer    Customer
	Items       []Item
}

type Session struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (Session, error)
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type transactionBody struct {
	TransactionDetails transactionDetails `json:"transaction_details"`
	CustomerDetails    *Customer          `json:"customer_details,omitempty"`
	ItemDetails        []Item             `json:"item_details,omitempty"`
}

type errorBody struct {
	StatusMessage string   `json:"status_message"`
	ErrorMessages []string `json:"error_messages"`
}

type gatewayImpl struct {
	cfg     *config.Config
	otel    otel.Otel
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[Session]
}

func New(cfg *config.Config, otel otel.Otel) Gateway {
	breakerCfg := cfg.External.Gateway.Breaker

	breaker := gobreaker.NewCircuitBreaker[Session](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: breakerCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return breakerCfg.MaxFailures > 0 && counts.ConsecutiveFailures >= breakerCfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("payment gateway breaker changed state")
		},
	})

	return &gatewayImpl{
		cfg:     cfg,
		otel:    otel,
		client:  &http.Client{},
		breaker: breaker,
	}
}

func (g *gatewayImpl) CreateTransaction(ctx context.Context, req TransactionRequest) (res Session, err error) {
	ctx, scope := g.otel.NewScope(ctx, constant.OtelGatewayScopeName, constant.OtelGatewayScopeName+".CreateTransaction")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttribute("gateway.order_id", req.OrderID)

	res, err = g.breaker.Execute(func() (Session, error) {
		return g.createTransaction(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Warn().Err(err).Str("order_id", req.OrderID).Msg("payment gateway breaker is open")

		return res, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return res, err
}

func (g *gatewayImpl) createTransaction(ctx context.Context, req TransactionRequest) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.External.Gateway.Timeout)
	defer cancel()

	body := transactionBody{
		TransactionDetails: transactionDetails{
			OrderID:     req.OrderID,
			GrossAmount: req.GrossAmount,
		},
		ItemDetails: req.Items,
	}

	if req.Customer != (Customer{}) {
		body.CustomerDetails = &req.Customer
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Session{}, fmt.Errorf("failed to marshal transaction request: %w", err)
	}

	url := strings.TrimSuffix(g.cfg.External.Gateway.BaseURL, "/") + transactionsPath

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Session{}, fmt.Errorf("failed to build transaction request: %w", err)
	}

	request.SetBasicAuth(g.cfg.External.Gateway.ServerKey, constant.Empty)
	request.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	request.Header.Set(constant.RequestHeaderAccept, constant.ContentTypeJSON)

	response, err := g.client.Do(request)
	if err != nil {
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("failed to reach payment gateway")

		return Session{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode >= http.StatusInternalServerError:
		log.Error().Int("status", response.StatusCode).Str("order_id", req.OrderID).Msg("payment gateway returned server error")

		return Session{}, fmt.Errorf("%w: status %d", ErrUnavailable, response.StatusCode)
	case response.StatusCode >= http.StatusBadRequest:
		reason := readErrorBody(response.Body)

		log.Warn().Int("status", response.StatusCode).Str("order_id", req.OrderID).Str("reason", reason).Msg("payment gateway rejected transaction")

		return Session{}, fmt.Errorf("%w: %s", ErrRejected, reason)
	}

	var session Session
	if err := json.NewDecoder(response.Body).Decode(&session); err != nil {
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("failed to decode payment gateway response")

		return Session{}, fmt.Errorf("%w: failed to decode response: %w", ErrUnavailable, err)
	}

	if session.Token == constant.Empty {
		return Session{}, fmt.Errorf("%w: response carried no token", ErrUnavailable)
	}

	return session, nil
}

// VerifySignature checks sha512(order_id + status_code + gross_amount + server_key).
func (g *gatewayImpl) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	expected := Signature(orderID, statusCode, grossAmount, g.cfg.External.Gateway.ServerKey)

	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signatureKey))) == 1
}

func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))

	return hex.EncodeToString(sum[:])
}

func readErrorBody(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return err.Error()
	}

	var decoded errorBody
	if err := json.Unmarshal(raw, &decoded); err == nil {
		if len(decoded.ErrorMessages) > 0 {
			return strings.Join(decoded.ErrorMessages, "; ")
		}

		if decoded.StatusMessage != constant.Empty {
			return decoded.StatusMessage
		}
	}

	return strings.TrimSpace(string(raw))
}
