package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"carrental/config"
	"carrental/infras/gateway"
	"carrental/infras/otel"
	notificationModel "carrental/internal/domains/notification/model"
	notificationService "carrental/internal/domains/notification/service"
	"carrental/internal/domains/payment/model"
	"carrental/internal/domains/payment/model/dto"
	"carrental/internal/domains/reservation/lifecycle"
	reservationModel "carrental/internal/domains/reservation/model"
	"carrental/internal/domains/reservation/repository"
	reservationService "carrental/internal/domains/reservation/service"
	"carrental/shared"
	"carrental/shared/clock"
	"carrental/shared/constant"
	"carrental/shared/failure"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const rentalItemName = "Vehicle rental"

var (
	errReservationNotFound = failure.NotFound("reservation not found")
	errNotOwner            = failure.Forbidden("reservation belongs to another customer")
	errInvalidSignature    = failure.Forbidden("invalid notification signature")
)

// payableStatuses are the payment states a gateway checkout can be started from.
var payableStatuses = []reservationModel.PaymentStatus{
	reservationModel.PaymentUnpaid,
	reservationModel.PaymentRejected,
}

type Payment interface {
	InitiatePayment(ctx context.Context, reservationID string, actor reservationModel.Actor) (dto.PaymentSessionResponse, error)
	HandleCallback(ctx context.Context, req dto.CallbackRequest) (model.Outcome, error)
}

type serviceImpl struct {
	repo         repository.Reservation
	reservations reservationService.Reservation
	gateway      gateway.Gateway
	notifier     notificationService.Notification
	cfg          *config.Config
	otel         otel.Otel
	clock        clock.Clock
}

func New(
	repo repository.Reservation,
	reservations reservationService.Reservation,
	gateway gateway.Gateway,
	notifier notificationService.Notification,
	cfg *config.Config,
	otel otel.Otel,
	clock clock.Clock,
) Payment {
	return &serviceImpl{
		repo:         repo,
		reservations: reservations,
		gateway:      gateway,
		notifier:     notifier,
		cfg:          cfg,
		otel:         otel,
		clock:        clock,
	}
}

// InitiatePayment opens a gateway checkout for a pending reservation. The
// transaction id is minted and stored before the gateway is called so a retry
// after a timeout reuses it, and a stored session is handed back without
// another remote call. Gateway failures leave the reservation untouched.
func (s *serviceImpl) InitiatePayment(ctx context.Context, reservationID string, actor reservationModel.Actor) (res dto.PaymentSessionResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.InitiatePayment")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	reservation, err := s.repo.Get(ctx, shared.FilterByID(reservationID, reservationModel.FieldID, reservationModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("reservation", reservationID).Msg("failed to get reservation")

		return res, fmt.Errorf("failed to get reservation: %w", err)
	}

	if reservation.ID == constant.Empty {
		return res, errReservationNotFound
	}

	if !actor.Owns(reservation) && !actor.IsAdmin() {
		return res, errNotOwner
	}

	if reservation.Status != reservationModel.StatusPending || !slices.Contains(payableStatuses, reservation.PaymentStatus) {
		return res, reservationModel.ToFailure(fmt.Errorf("%w: cannot start payment from %s", reservationModel.ErrInvalidTransition, reservation.State()), nil)
	}

	if reservation.GatewayTransactionID != constant.Empty && reservation.PaymentToken != constant.Empty {
		res.FromModel(reservation, true)

		return res, nil
	}

	txID, err := s.repo.MintTransactionID(ctx, reservation.ID, uuid.NewString())
	if err != nil {
		log.Error().Err(err).Str("reservation", reservation.ID).Msg("failed to mint gateway transaction id")

		return res, reservationModel.ToFailure(fmt.Errorf("failed to mint gateway transaction id: %w", err), nil)
	}

	scope.SetAttribute("gateway.transaction_id", txID)

	days := reservation.Range().Days()

	session, err := s.gateway.CreateTransaction(ctx, gateway.TransactionRequest{
		OrderID:     txID,
		GrossAmount: reservation.TotalPrice,
		Items: []gateway.Item{{
			ID:       reservation.VehicleID,
			Name:     rentalItemName,
			Price:    reservation.DailyRate,
			Quantity: days,
		}},
	})

	switch {
	case errors.Is(err, gateway.ErrUnavailable):
		log.Warn().Err(err).Str("reservation", reservation.ID).Str("transaction", txID).Msg("payment gateway unavailable")

		return res, reservationModel.ToFailure(reservationModel.ErrGatewayUnavailable, nil)
	case errors.Is(err, gateway.ErrRejected):
		log.Warn().Err(err).Str("reservation", reservation.ID).Str("transaction", txID).Msg("payment gateway declined transaction")

		return res, reservationModel.ToFailure(reservationModel.ErrGatewayRejected, nil)
	case err != nil:
		log.Error().Err(err).Str("reservation", reservation.ID).Msg("failed to create gateway transaction")

		return res, fmt.Errorf("failed to create gateway transaction: %w", err)
	}

	err = s.repo.AttachPaymentSession(ctx, reservation.ID, txID, session.Token, session.RedirectURL)
	if err != nil {
		log.Error().Err(err).Str("reservation", reservation.ID).Str("transaction", txID).Msg("failed to store payment session")

		return res, fmt.Errorf("failed to store payment session: %w", err)
	}

	reservation.GatewayTransactionID = txID
	reservation.PaymentToken = session.Token
	reservation.PaymentRedirectURL = session.RedirectURL

	res.FromModel(reservation, false)

	return res, nil
}

// HandleCallback applies a gateway notification. Once the payload is accepted
// every outcome, including unknown transactions and refused transitions, is
// reported without error so the gateway stops retrying.
func (s *serviceImpl) HandleCallback(ctx context.Context, req dto.CallbackRequest) (outcome model.Outcome, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.HandleCallback")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttributes(map[string]any{
		"gateway.order_id":           req.OrderID,
		"gateway.transaction_status": req.TransactionStatus,
	})

	if s.cfg.External.Gateway.VerifySignature &&
		!s.gateway.VerifySignature(req.OrderID, req.StatusCode, req.GrossAmount, req.SignatureKey) {
		log.Warn().Str("order_id", req.OrderID).Msg("payment notification signature mismatch")

		return outcome, errInvalidSignature
	}

	event, actionable, err := model.EventFor(req.TransactionStatus, req.FraudStatus)
	if err != nil {
		log.Warn().Err(err).Str("order_id", req.OrderID).Msg("unknown payment notification status")

		return outcome, reservationModel.ToFailure(err, nil)
	}

	reservation, err := s.repo.GetByGatewayTransactionID(ctx, req.OrderID)
	if err != nil {
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("failed to get reservation by transaction")

		return outcome, fmt.Errorf("failed to get reservation by transaction: %w", err)
	}

	if reservation.ID == constant.Empty {
		log.Error().
			Err(reservationModel.ErrUnknownTransaction).
			Str("order_id", req.OrderID).
			Str("transaction_status", req.TransactionStatus).
			Msg("payment notification for unknown transaction")

		return model.OutcomeUnknownTransaction, nil
	}

	if !actionable {
		log.Info().
			Str("reservation", reservation.ID).
			Str("transaction_status", req.TransactionStatus).
			Str("fraud_status", req.FraudStatus).
			Msg("payment notification acknowledged without transition")

		return model.OutcomeIgnored, nil
	}

	result, err := s.reservations.ApplyEvent(ctx, reservation, reservationService.Change{
		Event:  event,
		Actor:  reservationModel.GatewayActor(),
		Reason: req.TransactionStatus,
	})
	if errors.Is(err, reservationModel.ErrInvalidTransition) {
		if event == lifecycle.EventGatewaySettled && settledTooLate(reservation) {
			s.flagForReconciliation(ctx, reservation, req)
		}

		return model.OutcomeInvalidTransition, nil
	}

	if err != nil {
		return outcome, err //nolint:wrapcheck
	}

	if result.Replay {
		return model.OutcomeReplayed, nil
	}

	return model.OutcomeApplied, nil
}

// settledTooLate reports a reservation the gateway now says is paid although it
// was already cancelled as failed or expired.
func settledTooLate(reservation reservationModel.Reservation) bool {
	return reservation.Status == reservationModel.StatusCancelled &&
		(reservation.PaymentStatus == reservationModel.PaymentFailed || reservation.PaymentStatus == reservationModel.PaymentExpired)
}

func (s *serviceImpl) flagForReconciliation(ctx context.Context, reservation reservationModel.Reservation, req dto.CallbackRequest) {
	log.Error().
		Str("reservation", reservation.ID).
		Str("order_id", req.OrderID).
		Str("gateway_transaction", req.TransactionID).
		Str("state", reservation.State().String()).
		Str("gross_amount", req.GrossAmount).
		Msg("payment settled after reservation was closed, manual reconciliation required")

	go s.notifier.Notify(context.WithoutCancel(ctx), notificationModel.Notification{
		UserID:        reservation.CustomerID,
		ReservationID: reservation.ID,
		Event:         notificationModel.EventReconciliationRequired,
		Status:        string(reservation.Status),
		PaymentStatus: string(reservation.PaymentStatus),
		Reason:        req.TransactionStatus,
		OccurredAt:    s.clock.Now(),
	})
}
