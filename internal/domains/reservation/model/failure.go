package model

import (
	"errors"
	"net/http"

	"carrental/shared/failure"
)

var failureCodes = []struct {
	err  error
	code int
}{
	{ErrSlotUnavailable, http.StatusConflict},
	{ErrStaleState, http.StatusConflict},
	{ErrInvalidTransition, http.StatusConflict},
	{ErrGatewayUnavailable, http.StatusServiceUnavailable},
	{ErrGatewayRejected, http.StatusPaymentRequired},
	{ErrUnknownTransaction, http.StatusNotFound},
	{ErrUnknownGatewayStatus, http.StatusBadRequest},
	{ErrVehicleUnavailable, http.StatusUnprocessableEntity},
	{ErrInvalidDateRange, http.StatusBadRequest},
	{ErrPickupInPast, http.StatusBadRequest},
}

// ToFailure attaches the HTTP status of a reservation error. Errors that are
// already failures, or that are not reservation errors, are returned as is.
func ToFailure(err error, details any) error {
	var fail *failure.Failure
	if err == nil || errors.As(err, &fail) {
		return err
	}

	for _, candidate := range failureCodes {
		if errors.Is(err, candidate.err) {
			return failure.Wrap(candidate.code, err, details)
		}
	}

	return err
}
