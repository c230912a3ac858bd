// Package lifecycle decides which state a reservation moves to for a given event.
// It holds no I/O; callers persist the outcome with a compare-and-set write.
package lifecycle

import (
	"fmt"
	"slices"
	"time"

	"carrental/internal/domains/reservation/model"
)

type Event string

const (
	EventGatewaySettled Event = "gateway_settled"
	EventGatewayFailed  Event = "gateway_failed"
	EventProofSubmitted Event = "proof_submitted"
	EventProofAccepted  Event = "proof_accepted"
	EventProofRejected  Event = "proof_rejected"
	EventCancel         Event = "cancel"
	EventExpire         Event = "expire"
	EventComplete       Event = "complete"
	EventRefund         Event = "refund"
)

// Conditions carries the inputs some rules need besides the reservation itself.
type Conditions struct {
	Now         time.Time
	GracePeriod time.Duration
}

type Outcome struct {
	Event  Event
	From   model.State
	To     model.State
	Replay bool
}

// Changed reports whether the outcome has to be written.
func (o Outcome) Changed() bool {
	return !o.Replay && o.From != o.To
}

type rule struct {
	target  func(from model.State) model.State
	allowed func(r model.Reservation, cond Conditions) bool
}

func fixed(status model.Status, payment model.PaymentStatus) func(model.State) model.State {
	return func(model.State) model.State {
		return model.State{Status: status, PaymentStatus: payment}
	}
}

func keepPayment(status model.Status) func(model.State) model.State {
	return func(from model.State) model.State {
		return model.State{Status: status, PaymentStatus: from.PaymentStatus}
	}
}

func pendingWith(payments ...model.PaymentStatus) func(model.Reservation, Conditions) bool {
	return func(r model.Reservation, _ Conditions) bool {
		return r.Status == model.StatusPending &&
			(len(payments) == 0 || slices.Contains(payments, r.PaymentStatus))
	}
}

var rules = map[Event]rule{
	EventGatewaySettled: {
		target:  fixed(model.StatusConfirmed, model.PaymentPaid),
		allowed: pendingWith(),
	},
	EventGatewayFailed: {
		target:  fixed(model.StatusCancelled, model.PaymentFailed),
		allowed: pendingWith(),
	},
	EventProofSubmitted: {
		target:  fixed(model.StatusPending, model.PaymentPendingVerification),
		allowed: pendingWith(model.PaymentUnpaid, model.PaymentRejected),
	},
	EventProofAccepted: {
		target:  fixed(model.StatusConfirmed, model.PaymentPaid),
		allowed: pendingWith(model.PaymentPendingVerification),
	},
	EventProofRejected: {
		target:  fixed(model.StatusPending, model.PaymentRejected),
		allowed: pendingWith(model.PaymentPendingVerification),
	},
	EventCancel: {
		target: keepPayment(model.StatusCancelled),
		allowed: func(r model.Reservation, _ Conditions) bool {
			return r.Status == model.StatusPending || r.Status == model.StatusConfirmed
		},
	},
	EventExpire: {
		target: fixed(model.StatusCancelled, model.PaymentExpired),
		allowed: func(r model.Reservation, cond Conditions) bool {
			return pendingWith(model.StalePaymentStatuses...)(r, cond) &&
				cond.Now.Sub(r.CreatedAt) > cond.GracePeriod
		},
	},
	EventComplete: {
		target: keepPayment(model.StatusCompleted),
		allowed: func(r model.Reservation, cond Conditions) bool {
			return r.Status == model.StatusConfirmed && !model.DateOf(cond.Now).Before(r.ReturnDate)
		},
	},
	EventRefund: {
		target: fixed(model.StatusCancelled, model.PaymentRefunded),
		allowed: func(r model.Reservation, _ Conditions) bool {
			return r.Status == model.StatusCancelled && r.PaymentStatus == model.PaymentPaid
		},
	},
}

func (e Event) Valid() bool {
	_, ok := rules[e]

	return ok
}

// Apply computes the transition for event. A reservation already sitting in the
// event's target state yields a replay outcome instead of an error.
func Apply(reservation model.Reservation, event Event, cond Conditions) (Outcome, error) {
	r, ok := rules[event]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown event %q", model.ErrInvalidTransition, event)
	}

	from := reservation.State()
	to := r.target(from)

	if isReplay(event, from, to) {
		return Outcome{Event: event, From: from, To: from, Replay: true}, nil
	}

	if !r.allowed(reservation, cond) {
		return Outcome{}, fmt.Errorf("%w: cannot %s from %s", model.ErrInvalidTransition, event, from)
	}

	return Outcome{Event: event, From: from, To: to}, nil
}

func isReplay(event Event, from, to model.State) bool {
	switch event {
	case EventCancel:
		return from.Status == model.StatusCancelled
	case EventComplete:
		return from.Status == model.StatusCompleted
	default:
		return from == to
	}
}
