package model

import (
	"carrental/shared/model"
)

const (
	TableName  = "reservations"
	EntityName = "reservation"

	FieldID                   = "id"
	FieldVehicleID            = "vehicle_id"
	FieldCustomerID           = "customer_id"
	FieldPickupDate           = "pickup_date"
	FieldReturnDate           = "return_date"
	FieldDailyRate            = "daily_rate"
	FieldTotalPrice           = "total_price"
	FieldStatus               = "status"
	FieldPaymentStatus        = "payment_status"
	FieldPaymentMethod        = "payment_method"
	FieldGatewayTransactionID = "gateway_transaction_id"
	FieldPaymentToken         = "payment_token"
	FieldPaymentRedirectURL   = "payment_redirect_url"
	FieldProofReference       = "proof_reference"
	FieldNotes                = "notes"
	FieldCreatedAt            = "created_at"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal statuses accept no further fulfillment events.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentUnpaid              PaymentStatus = "unpaid"
	PaymentPendingVerification PaymentStatus = "pending_verification"
	PaymentPaid                PaymentStatus = "paid"
	PaymentFailed              PaymentStatus = "failed"
	PaymentRejected            PaymentStatus = "rejected"
	PaymentRefunded            PaymentStatus = "refunded"
	PaymentExpired             PaymentStatus = "expired"
)

const (
	PaymentMethodGateway        = "gateway"
	PaymentMethodManualTransfer = "manual_transfer"
)

// InactiveStatuses never block a vehicle's calendar.
var InactiveStatuses = []Status{StatusCancelled, StatusCompleted}

// StalePaymentStatuses are the payment states the reaper may expire.
var StalePaymentStatuses = []PaymentStatus{PaymentUnpaid, PaymentPendingVerification}

type State struct {
	Status        Status
	PaymentStatus PaymentStatus
}

func (s State) String() string {
	return string(s.Status) + "/" + string(s.PaymentStatus)
}

type Reservation struct {
	ID                   string        `db:"id"`
	VehicleID            string        `db:"vehicle_id"`
	CustomerID           string        `db:"customer_id"`
	PickupDate           Date          `db:"pickup_date"`
	ReturnDate           Date          `db:"return_date"`
	DailyRate            int64         `db:"daily_rate"`
	TotalPrice           int64         `db:"total_price"`
	Status               Status        `db:"status"`
	PaymentStatus        PaymentStatus `db:"payment_status"`
	PaymentMethod        string        `db:"payment_method"`
	GatewayTransactionID string        `db:"gateway_transaction_id"`
	PaymentToken         string        `db:"payment_token"`
	PaymentRedirectURL   string        `db:"payment_redirect_url"`
	ProofReference       string        `db:"proof_reference"`
	Notes                string        `db:"notes"`
	model.Metadata
}

func (r Reservation) Range() DateRange {
	return DateRange{Start: r.PickupDate, End: r.ReturnDate}
}

func (r Reservation) State() State {
	return State{Status: r.Status, PaymentStatus: r.PaymentStatus}
}

// Conflicting returns the active reservations whose range overlaps candidate.
func Conflicting(reservations []Reservation, candidate DateRange, excludeID string) []Reservation {
	conflicts := []Reservation{}

	for _, reservation := range reservations {
		if reservation.ID == excludeID && excludeID != "" {
			continue
		}

		if reservation.Status == StatusCancelled || reservation.Status == StatusCompleted {
			continue
		}

		if reservation.Range().Overlaps(candidate) {
			conflicts = append(conflicts, reservation)
		}
	}

	return conflicts
}
