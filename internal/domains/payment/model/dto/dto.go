package dto

import (
	"carrental/internal/domains/payment/model"
	reservationModel "carrental/internal/domains/reservation/model"
)

// CallbackRequest is the notification body the gateway posts for every transaction update.
type CallbackRequest struct {
	OrderID           string `json:"order_id"           validate:"required"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

type CallbackResponse struct {
	Outcome model.Outcome `json:"outcome"`
}

type PaymentSessionResponse struct {
	ReservationID string `json:"reservation_id"`
	TransactionID string `json:"transaction_id"`
	Token         string `json:"token"`
	RedirectURL   string `json:"redirect_url"`
	Reused        bool   `json:"reused"`
}

func (p *PaymentSessionResponse) FromModel(reservation reservationModel.Reservation, reused bool) {
	p.ReservationID = reservation.ID
	p.TransactionID = reservation.GatewayTransactionID
	p.Token = reservation.PaymentToken
	p.RedirectURL = reservation.PaymentRedirectURL
	p.Reused = reused
}
