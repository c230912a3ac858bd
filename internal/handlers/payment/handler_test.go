package payment_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"carrental/infras/otel/mocks"
	paymentMocks "carrental/internal/domains/payment/mocks"
	"carrental/internal/domains/payment/model"
	"carrental/internal/domains/payment/model/dto"
	"carrental/internal/handlers/payment"
	"carrental/shared/failure"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const settlementBody = `{"order_id":"7d4c3a7e","transaction_status":"settlement","fraud_status":"accept","status_code":"200","gross_amount":"1050000.00","signature_key":"abc"}`

func TestHandler_Notification(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(svc *paymentMocks.MockPayment)
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name: "applied",
			body: settlementBody,
			setup: func(svc *paymentMocks.MockPayment) {
				svc.EXPECT().HandleCallback(gomock.Any(), dto.CallbackRequest{
					OrderID:           "7d4c3a7e",
					TransactionStatus: "settlement",
					FraudStatus:       "accept",
					StatusCode:        "200",
					GrossAmount:       "1050000.00",
					SignatureKey:      "abc",
				}).Return(model.OutcomeApplied, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"outcome": "applied"},
		},
		{
			name: "duplicate delivery",
			body: settlementBody,
			setup: func(svc *paymentMocks.MockPayment) {
				svc.EXPECT().HandleCallback(gomock.Any(), gomock.Any()).Return(model.OutcomeReplayed, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"outcome": "replayed"},
		},
		{
			name:       "malformed json",
			body:       `{"order_id":`,
			setup:      func(*paymentMocks.MockPayment) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing transaction status",
			body:       `{"order_id":"7d4c3a7e"}`,
			setup:      func(*paymentMocks.MockPayment) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "bad signature",
			body: settlementBody,
			setup: func(svc *paymentMocks.MockPayment) {
				svc.EXPECT().HandleCallback(gomock.Any(), gomock.Any()).Return(model.Outcome(""), failure.Forbidden("invalid signature"))
			},
			wantStatus: http.StatusForbidden,
			wantBody:   map[string]any{"error": "invalid signature"},
		},
		{
			name: "storage failure",
			body: settlementBody,
			setup: func(svc *paymentMocks.MockPayment) {
				svc.EXPECT().HandleCallback(gomock.Any(), gomock.Any()).Return(model.Outcome(""), errors.New("connection reset"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := paymentMocks.NewMockPayment(gomock.NewController(t))
			tt.setup(svc)

			handler := payment.New(svc, mocks.NewOtel())
			router := chi.NewRouter()
			handler.Router(router)

			request := httptest.NewRequest(http.MethodPost, "/payments/notification", strings.NewReader(tt.body))
			recorder := httptest.NewRecorder()

			router.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)

			if tt.wantBody != nil {
				var body map[string]any
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
				assert.Equal(t, tt.wantBody, body)
			}
		})
	}
}
