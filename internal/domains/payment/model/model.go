package model

import (
	"fmt"

	"carrental/internal/domains/reservation/lifecycle"
	reservationModel "carrental/internal/domains/reservation/model"
)

// Transaction statuses reported by the gateway.
const (
	TransactionCapture    = "capture"
	TransactionSettlement = "settlement"
	TransactionPending    = "pending"
	TransactionDeny       = "deny"
	TransactionCancel     = "cancel"
	TransactionExpire     = "expire"
	TransactionFailure    = "failure"
	TransactionRefund     = "refund"
)

const (
	FraudAccept    = "accept"
	FraudChallenge = "challenge"
	FraudDeny      = "deny"
)

// Outcome is what the callback handler reports back to the gateway.
type Outcome string

const (
	OutcomeApplied            Outcome = "applied"
	OutcomeReplayed           Outcome = "replayed"
	OutcomeIgnored            Outcome = "ignored"
	OutcomeUnknownTransaction Outcome = "unknown_transaction"
	OutcomeInvalidTransition  Outcome = "invalid_transition"
)

// EventFor maps a gateway transaction status onto a reservation event. ok is
// false for statuses that are acknowledged without moving the reservation.
func EventFor(transactionStatus, fraudStatus string) (event lifecycle.Event, ok bool, err error) {
	switch transactionStatus {
	case TransactionCapture:
		switch fraudStatus {
		case FraudDeny:
			return lifecycle.EventGatewayFailed, true, nil
		case FraudChallenge:
			return "", false, nil
		}

		return lifecycle.EventGatewaySettled, true, nil
	case TransactionSettlement:
		return lifecycle.EventGatewaySettled, true, nil
	case TransactionDeny, TransactionCancel, TransactionExpire, TransactionFailure:
		return lifecycle.EventGatewayFailed, true, nil
	case TransactionPending:
		return "", false, nil
	case TransactionRefund:
		return lifecycle.EventRefund, true, nil
	}

	return "", false, fmt.Errorf("%w: %q", reservationModel.ErrUnknownGatewayStatus, transactionStatus)
}
