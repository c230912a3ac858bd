package model

import "errors"

var (
	ErrSlotUnavailable      = errors.New("vehicle is already booked for the requested dates")
	ErrInvalidTransition    = errors.New("reservation cannot move to the requested state")
	ErrStaleState           = errors.New("reservation changed while the transition was being applied")
	ErrGatewayUnavailable   = errors.New("payment gateway is temporarily unavailable, try again")
	ErrGatewayRejected      = errors.New("payment was declined, choose a different payment method")
	ErrUnknownTransaction   = errors.New("payment transaction is not known, contact support")
	ErrUnknownGatewayStatus = errors.New("payment gateway reported an unknown transaction status")
	ErrVehicleUnavailable   = errors.New("vehicle is not available for rent")
	ErrInvalidDateRange     = errors.New("pickup_date must not be after return_date")
	ErrPickupInPast         = errors.New("pickup_date must not be in the past")
)
