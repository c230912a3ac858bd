package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carrental/infras/otel"
	"carrental/infras/postgres"
	"carrental/internal/domains/reservation/model"
	"carrental/shared/constant"
	gDto "carrental/shared/dto"
	"carrental/shared/logger"
	gRepo "carrental/shared/repository"
	"carrental/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const lockVehicleQuery = "SELECT pg_advisory_xact_lock(hashtext($1))"

type Reservation interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Reservation, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Reservation, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)

	CreateIfAvailable(ctx context.Context, reservation model.Reservation) ([]model.Reservation, error)
	GetActiveByVehicle(ctx context.Context, vehicleID string) ([]model.Reservation, error)
	GetByGatewayTransactionID(ctx context.Context, transactionID string) (model.Reservation, error)
	GetStale(ctx context.Context, cutoff time.Time, limit int) ([]model.Reservation, error)
	Transition(ctx context.Context, id string, from, to model.State, fields map[string]any) error
	MintTransactionID(ctx context.Context, id, transactionID string) (string, error)
	AttachPaymentSession(ctx context.Context, id, transactionID, token, redirectURL string) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Reservation]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Reservation {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Reservation](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func activeByVehicle(vehicleID string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldVehicleID, Value: vehicleID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldStatus, Value: model.InactiveStatuses, Operator: gDto.FilterOperatorNotIn, Table: model.TableName},
		},
	}
}

func byID(id string) gDto.Filter {
	return gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName}
}

// CreateIfAvailable inserts reservation unless an active reservation of the same
// vehicle overlaps it. Concurrent callers for one vehicle are serialised by a
// transaction-scoped advisory lock, so the check and the insert are atomic.
func (r *repositoryImpl) CreateIfAvailable(ctx context.Context, reservation model.Reservation) (conflicts []model.Reservation, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.CreateIfAvailable")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	err = r.WithTx(ctx, func(sqltx *sqlx.Tx) error {
		if _, err := sqltx.ExecContext(ctx, lockVehicleQuery, reservation.VehicleID); err != nil {
			logger.ErrorWithStack(err)

			return fmt.Errorf("failed to lock vehicle calendar: %w", err)
		}

		active, err := r.GetAllTx(ctx, sqltx, gDto.QueryParams{}, activeByVehicle(reservation.VehicleID))
		if err != nil {
			return err
		}

		conflicts = model.Conflicting(active, reservation.Range(), reservation.ID)
		if len(conflicts) > 0 {
			return model.ErrSlotUnavailable
		}

		return r.InsertTx(ctx, sqltx, reservation)
	})

	if isExclusionViolation(err) {
		return conflicts, model.ErrSlotUnavailable
	}

	if err != nil {
		return conflicts, err //nolint:wrapcheck
	}

	return conflicts, nil
}

func isExclusionViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == constant.PqErrorCodeExclusionViolation
}

func (r *repositoryImpl) GetActiveByVehicle(ctx context.Context, vehicleID string) ([]model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.GetActiveByVehicle")
	defer scope.End()

	return r.GetAll(ctx, gDto.QueryParams{SortBy: model.FieldPickupDate, SortDir: gDto.SortDirAsc}, activeByVehicle(vehicleID))
}

func (r *repositoryImpl) GetByGatewayTransactionID(ctx context.Context, transactionID string) (model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.GetByGatewayTransactionID")
	defer scope.End()

	if transactionID == constant.Empty {
		return model.Reservation{}, nil
	}

	return r.Get(ctx, gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldGatewayTransactionID, Value: transactionID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	})
}

// GetStale lists pending reservations created before cutoff whose payment never completed.
func (r *repositoryImpl) GetStale(ctx context.Context, cutoff time.Time, limit int) ([]model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.GetStale")
	defer scope.End()

	return r.GetAll(ctx, gDto.QueryParams{Limit: limit, SortBy: model.FieldCreatedAt, SortDir: gDto.SortDirAsc}, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldStatus, Value: model.StatusPending, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldPaymentStatus, Value: model.StalePaymentStatuses, Operator: gDto.FilterOperatorIn, Table: model.TableName},
			gDto.Filter{Field: model.FieldCreatedAt, Value: cutoff, Operator: gDto.FilterOperatorLess, Table: model.TableName},
		},
	})
}

// Transition writes to only while the row still holds from. Losing that race
// returns model.ErrStaleState.
func (r *repositoryImpl) Transition(ctx context.Context, id string, from, to model.State, fields map[string]any) (err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.Transition")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	update := map[string]any{
		model.FieldStatus:        to.Status,
		model.FieldPaymentStatus: to.PaymentStatus,
		constant.FieldModifiedAt: timezone.Now(),
	}

	for key, value := range fields {
		update[key] = value
	}

	affected, err := r.UpdateCount(ctx, update, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			byID(id),
			gDto.Filter{ArgName: "expected_status", Field: model.FieldStatus, Value: from.Status, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{ArgName: "expected_payment_status", Field: model.FieldPaymentStatus, Value: from.PaymentStatus, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s is no longer %s", model.ErrStaleState, id, from)
	}

	return nil
}

// MintTransactionID stores transactionID on the reservation unless one is already
// present, and returns whichever id the row ends up holding.
func (r *repositoryImpl) MintTransactionID(ctx context.Context, id, transactionID string) (res string, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.MintTransactionID")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	affected, err := r.UpdateCount(ctx, map[string]any{
		model.FieldGatewayTransactionID: transactionID,
		model.FieldPaymentMethod:        model.PaymentMethodGateway,
		constant.FieldModifiedAt:        timezone.Now(),
	}, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			byID(id),
			gDto.Filter{ArgName: "current_transaction_id", Field: model.FieldGatewayTransactionID, Value: constant.Empty, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	})
	if err != nil {
		return constant.Empty, err //nolint:wrapcheck
	}

	if affected == 1 {
		return transactionID, nil
	}

	current, err := r.Get(ctx, gDto.FilterGroup{Filters: []any{byID(id)}}, model.FieldID, model.FieldGatewayTransactionID)
	if err != nil {
		return constant.Empty, err //nolint:wrapcheck
	}

	if current.GatewayTransactionID == constant.Empty {
		return constant.Empty, fmt.Errorf("%w: %s has no transaction id", model.ErrStaleState, id)
	}

	return current.GatewayTransactionID, nil
}

// AttachPaymentSession records the gateway session for transactionID. The write is
// dropped with model.ErrStaleState if the reservation was re-minted meanwhile.
func (r *repositoryImpl) AttachPaymentSession(ctx context.Context, id, transactionID, token, redirectURL string) (err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.AttachPaymentSession")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	affected, err := r.UpdateCount(ctx, map[string]any{
		model.FieldPaymentToken:       token,
		model.FieldPaymentRedirectURL: redirectURL,
		constant.FieldModifiedAt:      timezone.Now(),
	}, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			byID(id),
			gDto.Filter{ArgName: "current_transaction_id", Field: model.FieldGatewayTransactionID, Value: transactionID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s no longer holds transaction %s", model.ErrStaleState, id, transactionID)
	}

	return nil
}
