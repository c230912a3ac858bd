package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Reservation=MockReservationService

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"carrental/config"
	"carrental/infras/otel"
	"carrental/infras/s3"
	notificationModel "carrental/internal/domains/notification/model"
	notificationService "carrental/internal/domains/notification/service"
	"carrental/internal/domains/reservation/lifecycle"
	"carrental/internal/domains/reservation/model"
	"carrental/internal/domains/reservation/model/dto"
	"carrental/internal/domains/reservation/repository"
	vehicleService "carrental/internal/domains/vehicle/service"
	"carrental/shared"
	"carrental/shared/cache"
	"carrental/shared/clock"
	"carrental/shared/constant"
	gDto "carrental/shared/dto"
	"carrental/shared/failure"
	sharedModel "carrental/shared/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetReservation    = "reservation:get"
	cacheGetAllReservation = "reservation:gets"
	cacheCountReservation  = "reservation:count"

	proofDirectory = "proof"

	maxTransitionAttempts = 3
)

var (
	errReservationNotFound = failure.NotFound("reservation not found")
	errNotOwner            = failure.Forbidden("reservation belongs to another customer")
	errAdminOnly           = failure.Forbidden("only administrators can perform this action")
	errUnauthenticated     = failure.Unauthorized("login required")
)

// Change is one lifecycle event together with who caused it and the extra
// columns written alongside the new state.
type Change struct {
	Event  lifecycle.Event
	Actor  model.Actor
	Fields map[string]any
	Reason string
}

type Reservation interface {
	CheckAvailability(ctx context.Context, vehicleID string, dates model.DateRange, excludeID string) (dto.AvailabilityResponse, error)
	Create(ctx context.Context, req dto.CreateReservationRequest) (dto.ReservationResponse, error)
	Get(ctx context.Context, id string, actor model.Actor) (dto.ReservationResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetReservationsResponse, error)
	GetMine(ctx context.Context, actor model.Actor, req gDto.QueryParams) (dto.GetReservationsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Cancel(ctx context.Context, id string, actor model.Actor) (dto.TransitionResponse, error)
	SubmitProof(ctx context.Context, id string, actor model.Actor, req dto.SubmitProofRequest) (dto.TransitionResponse, error)
	VerifyPayment(ctx context.Context, id string, actor model.Actor, req dto.VerifyPaymentRequest) (dto.TransitionResponse, error)
	Complete(ctx context.Context, id string, actor model.Actor) (dto.TransitionResponse, error)
	Refund(ctx context.Context, id string, actor model.Actor) (dto.TransitionResponse, error)
	Expire(ctx context.Context, reservation model.Reservation) (lifecycle.Outcome, error)
	ApplyEvent(ctx context.Context, reservation model.Reservation, change Change) (lifecycle.Outcome, error)
}

type serviceImpl struct {
	repo     repository.Reservation
	vehicles vehicleService.Vehicle
	notifier notificationService.Notification
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	s3       s3.S3
	clock    clock.Clock
}

func New(
	repo repository.Reservation,
	vehicles vehicleService.Vehicle,
	notifier notificationService.Notification,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
	s3 s3.S3,
	clock clock.Clock,
) Reservation {
	return &serviceImpl{
		repo:     repo,
		vehicles: vehicles,
		notifier: notifier,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
		s3:       s3,
		clock:    clock,
	}
}

func (s *serviceImpl) conditions() lifecycle.Conditions {
	return lifecycle.Conditions{
		Now:         s.clock.Now(),
		GracePeriod: time.Duration(s.cfg.Reservation.GracePeriodHours) * time.Hour,
	}
}

// CheckAvailability reports whether dates are free for the vehicle. Reservations
// with id excludeID are ignored so a booking can be checked against the others.
func (s *serviceImpl) CheckAvailability(ctx context.Context, vehicleID string, dates model.DateRange, excludeID string) (res dto.AvailabilityResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.CheckAvailability")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !dates.Valid() {
		return res, model.ToFailure(model.ErrInvalidDateRange, nil)
	}

	if _, err = s.vehicles.Get(ctx, vehicleID); err != nil {
		return res, err //nolint:wrapcheck
	}

	active, err := s.repo.GetActiveByVehicle(ctx, vehicleID)
	if err != nil {
		log.Error().Err(err).Str("vehicle", vehicleID).Msg("failed to get active reservations")

		return res, fmt.Errorf("failed to get active reservations: %w", err)
	}

	res.FromConflicts(vehicleID, dates, model.Conflicting(active, dates, excludeID))

	return res, nil
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateReservationRequest) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := model.ActorFromContext(ctx)
	if actor.ID == constant.Empty {
		return res, errUnauthenticated
	}

	dates, err := req.Range()
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	now := s.clock.Now()

	if !dates.Valid() {
		return res, model.ToFailure(model.ErrInvalidDateRange, nil)
	}

	if dates.Start.Before(model.DateOf(now)) {
		return res, model.ToFailure(model.ErrPickupInPast, nil)
	}

	vehicle, err := s.vehicles.Get(ctx, req.VehicleID)
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	if !vehicle.Rentable() {
		return res, model.ToFailure(model.ErrVehicleUnavailable, nil)
	}

	reservation := model.Reservation{
		ID:            uuid.NewString(),
		VehicleID:     vehicle.ID,
		CustomerID:    actor.ID,
		PickupDate:    dates.Start,
		ReturnDate:    dates.End,
		DailyRate:     vehicle.DailyRate,
		TotalPrice:    vehicle.DailyRate * int64(dates.Days()),
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Metadata:      sharedModel.NewMetadata(actor.ID, now),
	}

	conflicts, err := s.repo.CreateIfAvailable(ctx, reservation)
	if errors.Is(err, model.ErrSlotUnavailable) {
		log.Info().Str("vehicle", vehicle.ID).Str("dates", dates.String()).Msg("reservation rejected, slot unavailable")

		return res, model.ToFailure(err, dto.Conflicts(conflicts))
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to create reservation")

		return res, fmt.Errorf("failed to create reservation: %w", err)
	}

	res.FromModel(reservation)

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllReservation)
		shared.InvalidateCaches(c, s.cache, cacheCountReservation)

		s.notifier.Notify(c, notification(reservation, reservation.State(), notificationModel.EventReservationCreated, constant.Empty, now))
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string, actor model.Actor) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheGetReservation, id)

	if cacheErr := s.cache.Get(ctx, cacheKey, &res); cacheErr != nil {
		var reservation model.Reservation

		reservation, err = s.load(ctx, id)
		if err != nil {
			return res, err
		}

		res.FromModel(reservation)
		cached := res

		go func() {
			c := context.WithoutCancel(ctx)

			if err := s.cache.Save(c, cacheKey, cached, s.cfg.Cache.TTL); err != nil {
				log.Error().Err(err).Msg("failed to save reservation to cache")
			}
		}()
	}

	if !actor.IsAdmin() && actor.ID != res.CustomerID {
		return dto.ReservationResponse{}, errNotOwner
	}

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetReservationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllReservation, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservations")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservations")

		return res, fmt.Errorf("failed to get reservations: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservations to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetMine(ctx context.Context, actor model.Actor, req gDto.QueryParams) (dto.GetReservationsResponse, error) {
	if actor.ID == constant.Empty {
		return dto.GetReservationsResponse{}, errUnauthenticated
	}

	return s.GetAll(ctx, req, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldCustomerID, Value: actor.ID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	})
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountReservation, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count reservations")

		return res, fmt.Errorf("failed to count reservations: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservation count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Cancel(ctx context.Context, id string, actor model.Actor) (dto.TransitionResponse, error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Cancel")
	defer scope.End()

	reservation, err := s.load(ctx, id)
	if err != nil {
		return dto.TransitionResponse{}, err
	}

	if !actor.IsAdmin() && !actor.Owns(reservation) {
		return dto.TransitionResponse{}, errNotOwner
	}

	return s.transition(ctx, reservation, Change{Event: lifecycle.EventCancel, Actor: actor})
}

// SubmitProof stores a manual-transfer receipt and moves the payment to verification.
// The upload only happens once the transition is known to be allowed.
func (s *serviceImpl) SubmitProof(ctx context.Context, id string, actor model.Actor, req dto.SubmitProofRequest) (dto.TransitionResponse, error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.SubmitProof")
	defer scope.End()

	reservation, err := s.load(ctx, id)
	if err != nil {
		return dto.TransitionResponse{}, err
	}

	if !actor.Owns(reservation) {
		return dto.TransitionResponse{}, errNotOwner
	}

	outcome, err := lifecycle.Apply(reservation, lifecycle.EventProofSubmitted, s.conditions())
	if err != nil {
		return dto.TransitionResponse{}, model.ToFailure(err, nil)
	}

	if outcome.Replay {
		return transitionResponse(reservation.ID, outcome), nil
	}

	bucket := s.cfg.External.S3.BucketName
	objectName := reservation.ID + "-" + uuid.NewString() + filepath.Ext(req.File.Filename)

	url, err := s.s3.UploadFile(ctx, bucket, proofDirectory, req.FileData, req.File, objectName)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("reservation", id).Msg("failed to upload payment proof")

		return dto.TransitionResponse{}, fmt.Errorf("failed to upload payment proof: %w", err)
	}

	res, err := s.transition(ctx, reservation, Change{
		Event: lifecycle.EventProofSubmitted,
		Actor: actor,
		Fields: map[string]any{
			model.FieldProofReference: url,
			model.FieldPaymentMethod:  model.PaymentMethodManualTransfer,
		},
	})
	if err != nil {
		if delErr := s.s3.DeleteFile(context.WithoutCancel(ctx), bucket, proofDirectory, objectName); delErr != nil {
			log.Warn().Err(delErr).Str("object", objectName).Msg("failed to remove orphaned payment proof")
		}

		return res, err
	}

	return res, nil
}

func (s *serviceImpl) VerifyPayment(ctx context.Context, id string, actor model.Actor, req dto.VerifyPaymentRequest) (dto.TransitionResponse, error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.VerifyPayment")
	defer scope.End()

	if !actor.IsAdmin() {
		return dto.TransitionResponse{}, errAdminOnly
	}

	reservation, err := s.load(ctx, id)
	if err != nil {
		return dto.TransitionResponse{}, err
	}

	event := lifecycle.EventProofAccepted
	if req.Decision == dto.DecisionRejected {
		event = lifecycle.EventProofRejected
	}

	return s.transition(ctx, reservation, Change{Event: event, Actor: actor, Reason: req.Reason})
}

func (s *serviceImpl) Complete(ctx context.Context, id string, actor model.Actor) (dto.TransitionResponse, error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Complete")
	defer scope.End()

	return s.adminTransition(ctx, id, actor, lifecycle.EventComplete)
}

func (s *serviceImpl) Refund(ctx context.Context, id string, actor model.Actor) (dto.TransitionResponse, error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Refund")
	defer scope.End()

	return s.adminTransition(ctx, id, actor, lifecycle.EventRefund)
}

func (s *serviceImpl) adminTransition(ctx context.Context, id string, actor model.Actor, event lifecycle.Event) (dto.TransitionResponse, error) {
	if !actor.IsAdmin() {
		return dto.TransitionResponse{}, errAdminOnly
	}

	reservation, err := s.load(ctx, id)
	if err != nil {
		return dto.TransitionResponse{}, err
	}

	return s.transition(ctx, reservation, Change{Event: event, Actor: actor})
}

func (s *serviceImpl) Expire(ctx context.Context, reservation model.Reservation) (lifecycle.Outcome, error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Expire")
	defer scope.End()

	return s.ApplyEvent(ctx, reservation, Change{Event: lifecycle.EventExpire, Actor: model.SystemActor()})
}

// ApplyEvent runs change through the lifecycle and persists it with a
// compare-and-set write. When another writer got there first the row is
// re-read and the event re-evaluated, so a duplicate delivery settles as a replay.
func (s *serviceImpl) ApplyEvent(ctx context.Context, reservation model.Reservation, change Change) (outcome lifecycle.Outcome, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.ApplyEvent")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	for attempt := 1; ; attempt++ {
		cond := s.conditions()

		outcome, err = lifecycle.Apply(reservation, change.Event, cond)
		if err != nil {
			log.Warn().Err(err).Str("reservation", reservation.ID).Str("event", string(change.Event)).Msg("transition refused")

			return outcome, err
		}

		if !outcome.Changed() {
			return outcome, nil
		}

		fields := map[string]any{constant.FieldModifiedBy: change.Actor.ID}
		for key, value := range change.Fields {
			fields[key] = value
		}

		err = s.repo.Transition(ctx, reservation.ID, outcome.From, outcome.To, fields)
		if err == nil {
			s.afterTransition(ctx, reservation, outcome, change, cond.Now)

			return outcome, nil
		}

		if !errors.Is(err, model.ErrStaleState) || attempt == maxTransitionAttempts {
			log.Error().Err(err).Str("reservation", reservation.ID).Str("event", string(change.Event)).Msg("failed to persist transition")

			return lifecycle.Outcome{}, fmt.Errorf("failed to persist transition: %w", err)
		}

		reservation, err = s.load(ctx, reservation.ID)
		if err != nil {
			return lifecycle.Outcome{}, err
		}
	}
}

func (s *serviceImpl) afterTransition(ctx context.Context, reservation model.Reservation, outcome lifecycle.Outcome, change Change, now time.Time) {
	log.Info().
		Str("reservation", reservation.ID).
		Str("event", string(outcome.Event)).
		Str("from", outcome.From.String()).
		Str("to", outcome.To.String()).
		Str("actor", change.Actor.ID).
		Msg("reservation transitioned")

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetReservation, reservation.ID)); err != nil {
			log.Error().Err(err).Msg("failed to delete reservation cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllReservation)
		shared.InvalidateCaches(c, s.cache, cacheCountReservation)

		if event, ok := notificationEvent(outcome.To); ok {
			s.notifier.Notify(c, notification(reservation, outcome.To, event, change.Reason, now))
		}
	}()
}

func (s *serviceImpl) transition(ctx context.Context, reservation model.Reservation, change Change) (dto.TransitionResponse, error) {
	outcome, err := s.ApplyEvent(ctx, reservation, change)
	if err != nil {
		return dto.TransitionResponse{}, model.ToFailure(err, nil)
	}

	return transitionResponse(reservation.ID, outcome), nil
}

// load reads the current row from the database, bypassing the cache.
func (s *serviceImpl) load(ctx context.Context, id string) (model.Reservation, error) {
	reservation, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("reservation", id).Msg("failed to get reservation")

		return reservation, fmt.Errorf("failed to get reservation: %w", err)
	}

	if reservation.ID == constant.Empty {
		return reservation, errReservationNotFound
	}

	return reservation, nil
}

func transitionResponse(id string, outcome lifecycle.Outcome) dto.TransitionResponse {
	return dto.TransitionResponse{
		ID:            id,
		Event:         string(outcome.Event),
		Status:        string(outcome.To.Status),
		PaymentStatus: string(outcome.To.PaymentStatus),
		Replay:        outcome.Replay,
	}
}

func notificationEvent(state model.State) (notificationModel.Event, bool) {
	switch {
	case state.Status == model.StatusConfirmed:
		return notificationModel.EventReservationConfirmed, true
	case state.Status == model.StatusCompleted:
		return notificationModel.EventReservationCompleted, true
	case state.PaymentStatus == model.PaymentRejected:
		return notificationModel.EventProofRejected, true
	case state.Status != model.StatusCancelled:
		return constant.Empty, false
	}

	switch state.PaymentStatus {
	case model.PaymentFailed:
		return notificationModel.EventPaymentFailed, true
	case model.PaymentExpired:
		return notificationModel.EventReservationExpired, true
	case model.PaymentRefunded:
		return notificationModel.EventPaymentRefunded, true
	default:
		return notificationModel.EventReservationCancelled, true
	}
}

func notification(reservation model.Reservation, state model.State, event notificationModel.Event, reason string, now time.Time) notificationModel.Notification {
	return notificationModel.Notification{
		UserID:        reservation.CustomerID,
		ReservationID: reservation.ID,
		Event:         event,
		Status:        string(state.Status),
		PaymentStatus: string(state.PaymentStatus),
		Reason:        reason,
		OccurredAt:    now,
	}
}
