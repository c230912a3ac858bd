package model

import "time"

type Event string

const (
	EventReservationCreated     Event = "reservation.created"
	EventReservationConfirmed   Event = "reservation.confirmed"
	EventReservationCancelled   Event = "reservation.cancelled"
	EventReservationExpired     Event = "reservation.expired"
	EventReservationCompleted   Event = "reservation.completed"
	EventPaymentFailed          Event = "payment.failed"
	EventPaymentRefunded        Event = "payment.refunded"
	EventProofRejected          Event = "payment.proof_rejected"
	EventReconciliationRequired Event = "payment.reconciliation_required"
)

// Notification is the message published for downstream delivery services.
type Notification struct {
	UserID        string    `json:"user_id"`
	ReservationID string    `json:"reservation_id"`
	Event         Event     `json:"event"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
