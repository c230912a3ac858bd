package service_test

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"carrental/config"
	"carrental/infras/otel/mocks"
	s3Mocks "carrental/infras/s3/mocks"
	notificationMocks "carrental/internal/domains/notification/mocks"
	notificationModel "carrental/internal/domains/notification/model"
	"carrental/internal/domains/reservation/lifecycle"
	reservationMocks "carrental/internal/domains/reservation/mocks"
	"carrental/internal/domains/reservation/model"
	"carrental/internal/domains/reservation/model/dto"
	"carrental/internal/domains/reservation/service"
	vehicleMocks "carrental/internal/domains/vehicle/mocks"
	vehicleDto "carrental/internal/domains/vehicle/model/dto"
	cacheMocks "carrental/shared/cache/mocks"
	"carrental/shared/clock"
	"carrental/shared/constant"
	gDto "carrental/shared/dto"
	"carrental/shared/failure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	vehicleID  = "5b0c1a4e-8f0e-4d53-9a39-2b7f3c3e7d11"
	customerID = "customer-1"
)

var (
	now      = time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	customer = model.Actor{ID: customerID, Role: constant.RoleUser}
	admin    = model.Actor{ID: "admin-1", Role: constant.RoleAdmin}
)

type fixture struct {
	repo     *reservationMocks.MockReservation
	vehicles *vehicleMocks.MockVehicleService
	notifier *notificationMocks.MockNotification
	cache    *cacheMocks.MockRedisCache
	s3       *s3Mocks.MockS3
	clock    *clock.Fixed
	svc      service.Reservation
	cached   chan string
}

func setup(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.External.S3.BucketName = "rental-assets"
	cfg.Reservation.GracePeriodHours = 24

	f := fixture{
		repo:     reservationMocks.NewMockReservation(ctrl),
		vehicles: vehicleMocks.NewMockVehicleService(ctrl),
		notifier: notificationMocks.NewMockNotification(ctrl),
		cache:    cacheMocks.NewMockRedisCache(ctrl),
		s3:       s3Mocks.NewMockS3(ctrl),
		clock:    clock.NewFixed(now),
	}
	f.svc = service.New(f.repo, f.vehicles, f.notifier, cfg, f.cache, mocks.NewOtel(), f.s3, f.clock)

	f.cached = make(chan string, 32)

	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, pattern string) error {
		f.cached <- "clear " + pattern

		return nil
	}).AnyTimes()
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, key string) error {
		f.cached <- "delete " + key

		return nil
	}).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, key string, _ any, _ int) error {
		f.cached <- "save " + key

		return nil
	}).AnyTimes()

	return f
}

// awaitCache blocks until the background goroutines have issued n cache writes.
func (f fixture) awaitCache(t *testing.T, n int) []string {
	t.Helper()

	ops := make([]string, 0, n)

	for range n {
		select {
		case op := <-f.cached:
			ops = append(ops, op)
		case <-time.After(time.Second):
			t.Fatalf("expected %d cache writes, got %v", n, ops)
		}
	}

	return ops
}

type eventMatcher notificationModel.Event

func (m eventMatcher) Matches(x any) bool {
	n, ok := x.(notificationModel.Notification)

	return ok && n.Event == notificationModel.Event(m)
}

func (m eventMatcher) String() string {
	return "notification for " + string(m)
}

// expectNotification captures the next notification sent for event.
func (f fixture) expectNotification(event notificationModel.Event) <-chan notificationModel.Notification {
	got := make(chan notificationModel.Notification, 1)

	f.notifier.EXPECT().
		Notify(gomock.Any(), eventMatcher(event)).
		Do(func(_ context.Context, n notificationModel.Notification) {
			got <- n
		})

	return got
}

func waitFor(t *testing.T, ch <-chan notificationModel.Notification) notificationModel.Notification {
	t.Helper()

	select {
	case n := <-ch:
		return n
	case <-time.After(time.Second):
		t.Fatal("notification was not sent")
	}

	return notificationModel.Notification{}
}

func customerContext() context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, customerID)

	return context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleUser)
}

func pending(payment model.PaymentStatus) model.Reservation {
	r := model.Reservation{
		ID:            "reservation-1",
		VehicleID:     vehicleID,
		CustomerID:    customerID,
		PickupDate:    model.NewDate(2026, time.June, 10),
		ReturnDate:    model.NewDate(2026, time.June, 12),
		DailyRate:     350000,
		TotalPrice:    1050000,
		Status:        model.StatusPending,
		PaymentStatus: payment,
	}
	r.CreatedAt = now.Add(-time.Hour)

	return r
}

func TestReservationService_Create(t *testing.T) {
	rentable := vehicleDto.VehicleResponse{ID: vehicleID, Status: "available", DailyRate: 350000}

	tests := []struct {
		name      string
		ctx       context.Context
		req       dto.CreateReservationRequest
		setupMock func(f fixture) <-chan notificationModel.Notification
		wantCode  int
		wantErr   bool
	}{
		{
			name: "successful creation",
			ctx:  customerContext(),
			req:  dto.CreateReservationRequest{VehicleID: vehicleID, PickupDate: "2026-06-10", ReturnDate: "2026-06-12"},
			setupMock: func(f fixture) <-chan notificationModel.Notification {
				f.vehicles.EXPECT().Get(gomock.Any(), vehicleID).Return(rentable, nil)
				f.repo.EXPECT().CreateIfAvailable(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r model.Reservation) ([]model.Reservation, error) {
					assert.Equal(t, int64(1050000), r.TotalPrice)
					assert.Equal(t, model.StatusPending, r.Status)
					assert.Equal(t, model.PaymentUnpaid, r.PaymentStatus)
					assert.Equal(t, customerID, r.CustomerID)
					assert.Equal(t, now, r.CreatedAt)

					return nil, nil
				})

				return f.expectNotification(notificationModel.EventReservationCreated)
			},
		},
		{
			name: "single day rental on the current date",
			ctx:  customerContext(),
			req:  dto.CreateReservationRequest{VehicleID: vehicleID, PickupDate: "2026-06-01", ReturnDate: "2026-06-01"},
			setupMock: func(f fixture) <-chan notificationModel.Notification {
				f.vehicles.EXPECT().Get(gomock.Any(), vehicleID).Return(rentable, nil)
				f.repo.EXPECT().CreateIfAvailable(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r model.Reservation) ([]model.Reservation, error) {
					assert.Equal(t, int64(350000), r.TotalPrice)

					return nil, nil
				})

				return f.expectNotification(notificationModel.EventReservationCreated)
			},
		},
		{
			name:      "not logged in",
			ctx:       context.Background(),
			req:       dto.CreateReservationRequest{VehicleID: vehicleID, PickupDate: "2026-06-10", ReturnDate: "2026-06-12"},
			setupMock: func(fixture) <-chan notificationModel.Notification { return nil },
			wantErr:   true,
			wantCode:  http.StatusUnauthorized,
		},
		{
			name:      "return before pickup",
			ctx:       customerContext(),
			req:       dto.CreateReservationRequest{VehicleID: vehicleID, PickupDate: "2026-06-12", ReturnDate: "2026-06-10"},
			setupMock: func(fixture) <-chan notificationModel.Notification { return nil },
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "pickup in the past",
			ctx:       customerContext(),
			req:       dto.CreateReservationRequest{VehicleID: vehicleID, PickupDate: "2026-05-31", ReturnDate: "2026-06-02"},
			setupMock: func(fixture) <-chan notificationModel.Notification { return nil },
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "vehicle not rentable",
			ctx:  customerContext(),
			req:  dto.CreateReservationRequest{VehicleID: vehicleID, PickupDate: "2026-06-10", ReturnDate: "2026-06-12"},
			setupMock: func(f fixture) <-chan notificationModel.Notification {
				f.vehicles.EXPECT().Get(gomock.Any(), vehicleID).Return(vehicleDto.VehicleResponse{ID: vehicleID, Status: "unavailable", DailyRate: 350000}, nil)

				return nil
			},
			wantErr:  true,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "slot already taken",
			ctx:  customerContext(),
			req:  dto.CreateReservationRequest{VehicleID: vehicleID, PickupDate: "2026-06-10", ReturnDate: "2026-06-12"},
			setupMock: func(f fixture) <-chan notificationModel.Notification {
				f.vehicles.EXPECT().Get(gomock.Any(), vehicleID).Return(rentable, nil)
				f.repo.EXPECT().CreateIfAvailable(gomock.Any(), gomock.Any()).Return([]model.Reservation{pending(model.PaymentUnpaid)}, model.ErrSlotUnavailable)

				return nil
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name: "repository error",
			ctx:  customerContext(),
			req:  dto.CreateReservationRequest{VehicleID: vehicleID, PickupDate: "2026-06-10", ReturnDate: "2026-06-12"},
			setupMock: func(f fixture) <-chan notificationModel.Notification {
				f.vehicles.EXPECT().Get(gomock.Any(), vehicleID).Return(rentable, nil)
				f.repo.EXPECT().CreateIfAvailable(gomock.Any(), gomock.Any()).Return(nil, errors.New("database error"))

				return nil
			},
			wantErr:  true,
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			notified := tt.setupMock(f)

			res, err := f.svc.Create(tt.ctx, tt.req)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, res.ID)
			assert.Equal(t, string(model.StatusPending), res.Status)

			n := waitFor(t, notified)
			assert.Equal(t, res.ID, n.ReservationID)
			assert.ElementsMatch(t, []string{"clear reservation:gets:*", "clear reservation:count:*"}, f.awaitCache(t, 2))
		})
	}
}

func TestReservationService_CreateReportsConflicts(t *testing.T) {
	f := setup(t)

	taken := pending(model.PaymentPaid)
	f.vehicles.EXPECT().Get(gomock.Any(), vehicleID).Return(vehicleDto.VehicleResponse{ID: vehicleID, Status: "available", DailyRate: 1}, nil)
	f.repo.EXPECT().CreateIfAvailable(gomock.Any(), gomock.Any()).Return([]model.Reservation{taken}, model.ErrSlotUnavailable)

	_, err := f.svc.Create(customerContext(), dto.CreateReservationRequest{VehicleID: vehicleID, PickupDate: "2026-06-11", ReturnDate: "2026-06-14"})
	require.ErrorIs(t, err, model.ErrSlotUnavailable)

	conflicts, ok := failure.GetDetails(err).([]dto.ConflictResponse)
	require.True(t, ok)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "2026-06-10", conflicts[0].PickupDate)
	assert.Equal(t, "2026-06-12", conflicts[0].ReturnDate)
	assert.Equal(t, string(model.StatusPending), conflicts[0].Status)
}

func TestReservationService_CheckAvailability(t *testing.T) {
	f := setup(t)

	own := pending(model.PaymentUnpaid)
	other := pending(model.PaymentPaid)
	other.ID = "reservation-2"
	other.PickupDate = model.NewDate(2026, time.June, 12)
	other.ReturnDate = model.NewDate(2026, time.June, 15)

	f.vehicles.EXPECT().Get(gomock.Any(), vehicleID).Return(vehicleDto.VehicleResponse{ID: vehicleID}, nil).Times(2)
	f.repo.EXPECT().GetActiveByVehicle(gomock.Any(), vehicleID).Return([]model.Reservation{own, other}, nil).Times(2)

	dates := model.NewDateRange(model.NewDate(2026, time.June, 11), model.NewDate(2026, time.June, 12))

	res, err := f.svc.CheckAvailability(context.Background(), vehicleID, dates, constant.Empty)
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Len(t, res.Conflicts, 2)

	res, err = f.svc.CheckAvailability(context.Background(), vehicleID, dates, own.ID)
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Len(t, res.Conflicts, 1)

	_, err = f.svc.CheckAvailability(context.Background(), vehicleID, model.NewDateRange(dates.End, dates.Start), constant.Empty)
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
}

func TestReservationService_Get(t *testing.T) {
	tests := []struct {
		name     string
		actor    model.Actor
		stored   model.Reservation
		wantCode int
		wantErr  bool
	}{
		{name: "owner", actor: customer, stored: pending(model.PaymentUnpaid)},
		{name: "admin", actor: admin, stored: pending(model.PaymentUnpaid)},
		{name: "another customer", actor: model.Actor{ID: "customer-2", Role: constant.RoleUser}, stored: pending(model.PaymentUnpaid), wantErr: true, wantCode: http.StatusForbidden},
		{name: "not found", actor: admin, stored: model.Reservation{}, wantErr: true, wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)

			f.cache.EXPECT().Get(gomock.Any(), "reservation:get:reservation-1", gomock.Any()).Return(errors.New("cache miss"))
			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(tt.stored, nil)

			res, err := f.svc.Get(context.Background(), "reservation-1", tt.actor)

			if tt.stored.ID != constant.Empty {
				assert.Equal(t, []string{"save reservation:get:reservation-1"}, f.awaitCache(t, 1))
			}

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assert.Empty(t, res.ID)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "reservation-1", res.ID)
			assert.Equal(t, 3, res.Days)
		})
	}
}

func TestReservationService_GetMineScopesToCustomer(t *testing.T) {
	f := setup(t)

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss")).Times(2)
	f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(1, nil)
	f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, _ gDto.QueryParams, filter gDto.FilterGroup, _ ...string) ([]model.Reservation, error) {
		where, args := filter.GetWhereClause()
		assert.Contains(t, where, "reservations.customer_id")
		assert.Contains(t, args, model.FieldCustomerID)

		return []model.Reservation{pending(model.PaymentUnpaid)}, nil
	})

	res, err := f.svc.GetMine(context.Background(), customer, gDto.QueryParams{Page: 1, Limit: 10})
	require.NoError(t, err)

	f.awaitCache(t, 2)

	assert.Len(t, res.Reservations, 1)

	_, err = f.svc.GetMine(context.Background(), model.Actor{}, gDto.QueryParams{Page: 1, Limit: 10})
	assert.Equal(t, http.StatusUnauthorized, failure.GetCode(err))
}

func TestReservationService_ApplyEvent(t *testing.T) {
	t.Run("persists the transition and notifies", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)
		f.repo.EXPECT().Transition(gomock.Any(), r.ID, r.State(), model.State{Status: model.StatusConfirmed, PaymentStatus: model.PaymentPaid}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _, _ model.State, fields map[string]any) error {
				assert.Equal(t, model.ActorGateway, fields[constant.FieldModifiedBy])

				return nil
			})
		notified := f.expectNotification(notificationModel.EventReservationConfirmed)

		outcome, err := f.svc.ApplyEvent(context.Background(), r, service.Change{
			Event: lifecycle.EventGatewaySettled,
			Actor: model.Actor{ID: model.ActorGateway},
		})
		require.NoError(t, err)
		assert.True(t, outcome.Changed())

		n := waitFor(t, notified)
		assert.Equal(t, notificationModel.EventReservationConfirmed, n.Event)
		assert.Equal(t, customerID, n.UserID)
	})

	t.Run("replay writes nothing", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)
		r.Status = model.StatusConfirmed
		r.PaymentStatus = model.PaymentPaid

		outcome, err := f.svc.ApplyEvent(context.Background(), r, service.Change{Event: lifecycle.EventGatewaySettled, Actor: model.SystemActor()})
		require.NoError(t, err)
		assert.True(t, outcome.Replay)
	})

	t.Run("invalid transition is refused", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)
		r.Status = model.StatusCancelled
		r.PaymentStatus = model.PaymentExpired

		_, err := f.svc.ApplyEvent(context.Background(), r, service.Change{Event: lifecycle.EventGatewaySettled, Actor: model.SystemActor()})
		require.ErrorIs(t, err, model.ErrInvalidTransition)
	})

	t.Run("stale write re-reads and settles as replay", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)
		settled := r
		settled.Status = model.StatusConfirmed
		settled.PaymentStatus = model.PaymentPaid

		gomock.InOrder(
			f.repo.EXPECT().Transition(gomock.Any(), r.ID, gomock.Any(), gomock.Any(), gomock.Any()).Return(model.ErrStaleState),
			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(settled, nil),
		)

		outcome, err := f.svc.ApplyEvent(context.Background(), r, service.Change{Event: lifecycle.EventGatewaySettled, Actor: model.SystemActor()})
		require.NoError(t, err)
		assert.True(t, outcome.Replay)
	})

	t.Run("stale write loses to a conflicting event", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)
		cancelled := r
		cancelled.Status = model.StatusCancelled

		f.repo.EXPECT().Transition(gomock.Any(), r.ID, gomock.Any(), gomock.Any(), gomock.Any()).Return(model.ErrStaleState)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(cancelled, nil)

		_, err := f.svc.ApplyEvent(context.Background(), r, service.Change{Event: lifecycle.EventGatewaySettled, Actor: model.SystemActor()})
		require.ErrorIs(t, err, model.ErrInvalidTransition)
	})

	t.Run("gives up after repeated stale writes", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)

		f.repo.EXPECT().Transition(gomock.Any(), r.ID, gomock.Any(), gomock.Any(), gomock.Any()).Return(model.ErrStaleState).Times(3)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil).Times(2)

		_, err := f.svc.ApplyEvent(context.Background(), r, service.Change{Event: lifecycle.EventGatewaySettled, Actor: model.SystemActor()})
		require.ErrorIs(t, err, model.ErrStaleState)
		assert.Equal(t, http.StatusConflict, failure.GetCode(model.ToFailure(err, nil)))
	})
}

func TestReservationService_Cancel(t *testing.T) {
	t.Run("owner cancels", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil)
		f.repo.EXPECT().Transition(gomock.Any(), r.ID, r.State(), model.State{Status: model.StatusCancelled, PaymentStatus: model.PaymentUnpaid}, gomock.Any()).Return(nil)
		notified := f.expectNotification(notificationModel.EventReservationCancelled)

		res, err := f.svc.Cancel(context.Background(), r.ID, customer)
		require.NoError(t, err)
		assert.Equal(t, string(model.StatusCancelled), res.Status)
		assert.False(t, res.Replay)
		assert.Equal(t, notificationModel.EventReservationCancelled, waitFor(t, notified).Event)
	})

	t.Run("cancelling twice is a replay", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)
		r.Status = model.StatusCancelled
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil)

		res, err := f.svc.Cancel(context.Background(), r.ID, customer)
		require.NoError(t, err)
		assert.True(t, res.Replay)
	})

	t.Run("another customer", func(t *testing.T) {
		f := setup(t)

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending(model.PaymentUnpaid), nil)

		_, err := f.svc.Cancel(context.Background(), "reservation-1", model.Actor{ID: "customer-2", Role: constant.RoleUser})
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})

	t.Run("completed reservation", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentPaid)
		r.Status = model.StatusCompleted
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil)

		_, err := f.svc.Cancel(context.Background(), r.ID, admin)
		assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	})
}

func TestReservationService_SubmitProof(t *testing.T) {
	req := dto.SubmitProofRequest{File: &multipart.FileHeader{Filename: "receipt.png"}}

	t.Run("uploads and moves to verification", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil)
		f.s3.EXPECT().UploadFile(gomock.Any(), "rental-assets", "proof", gomock.Any(), req.File, gomock.Any()).Return("https://cdn/proof/receipt.png", nil)
		f.repo.EXPECT().Transition(gomock.Any(), r.ID, r.State(), model.State{Status: model.StatusPending, PaymentStatus: model.PaymentPendingVerification}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _, _ model.State, fields map[string]any) error {
				assert.Equal(t, "https://cdn/proof/receipt.png", fields[model.FieldProofReference])
				assert.Equal(t, model.PaymentMethodManualTransfer, fields[model.FieldPaymentMethod])

				return nil
			})

		res, err := f.svc.SubmitProof(context.Background(), r.ID, customer, req)
		require.NoError(t, err)
		assert.Equal(t, string(model.PaymentPendingVerification), res.PaymentStatus)
	})

	t.Run("refused before upload when already paid", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentPaid)
		r.Status = model.StatusConfirmed
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil)

		_, err := f.svc.SubmitProof(context.Background(), r.ID, customer, req)
		assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	})

	t.Run("removes the upload when the transition fails", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentRejected)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil)
		f.s3.EXPECT().UploadFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("https://cdn/proof/x.png", nil)
		f.repo.EXPECT().Transition(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("database error"))
		f.s3.EXPECT().DeleteFile(gomock.Any(), "rental-assets", "proof", gomock.Any()).Return(nil)

		_, err := f.svc.SubmitProof(context.Background(), r.ID, customer, req)
		require.Error(t, err)
	})

	t.Run("only the owner can submit", func(t *testing.T) {
		f := setup(t)

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending(model.PaymentUnpaid), nil)

		_, err := f.svc.SubmitProof(context.Background(), "reservation-1", admin, req)
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})
}

func TestReservationService_VerifyPayment(t *testing.T) {
	tests := []struct {
		name      string
		actor     model.Actor
		req       dto.VerifyPaymentRequest
		setupMock func(f fixture) <-chan notificationModel.Notification
		want      model.State
		wantCode  int
	}{
		{
			name:  "accepted",
			actor: admin,
			req:   dto.VerifyPaymentRequest{Decision: dto.DecisionAccepted},
			setupMock: func(f fixture) <-chan notificationModel.Notification {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending(model.PaymentPendingVerification), nil)
				f.repo.EXPECT().Transition(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

				return f.expectNotification(notificationModel.EventReservationConfirmed)
			},
			want: model.State{Status: model.StatusConfirmed, PaymentStatus: model.PaymentPaid},
		},
		{
			name:  "rejected",
			actor: admin,
			req:   dto.VerifyPaymentRequest{Decision: dto.DecisionRejected, Reason: "amount does not match"},
			setupMock: func(f fixture) <-chan notificationModel.Notification {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending(model.PaymentPendingVerification), nil)
				f.repo.EXPECT().Transition(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

				return f.expectNotification(notificationModel.EventProofRejected)
			},
			want: model.State{Status: model.StatusPending, PaymentStatus: model.PaymentRejected},
		},
		{
			name:      "customer cannot verify",
			actor:     customer,
			req:       dto.VerifyPaymentRequest{Decision: dto.DecisionAccepted},
			setupMock: func(fixture) <-chan notificationModel.Notification { return nil },
			wantCode:  http.StatusForbidden,
		},
		{
			name:  "nothing to verify",
			actor: admin,
			req:   dto.VerifyPaymentRequest{Decision: dto.DecisionAccepted},
			setupMock: func(f fixture) <-chan notificationModel.Notification {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending(model.PaymentUnpaid), nil)

				return nil
			},
			wantCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			notified := tt.setupMock(f)

			res, err := f.svc.VerifyPayment(context.Background(), "reservation-1", tt.actor, tt.req)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, string(tt.want.Status), res.Status)
			assert.Equal(t, string(tt.want.PaymentStatus), res.PaymentStatus)

			n := waitFor(t, notified)
			assert.Equal(t, tt.req.Reason, n.Reason)
		})
	}
}

func TestReservationService_CompleteAndRefund(t *testing.T) {
	t.Run("complete on return date", func(t *testing.T) {
		f := setup(t)
		f.clock.Set(time.Date(2026, time.June, 12, 9, 0, 0, 0, time.UTC))

		r := pending(model.PaymentPaid)
		r.Status = model.StatusConfirmed
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil)
		f.repo.EXPECT().Transition(gomock.Any(), r.ID, r.State(), model.State{Status: model.StatusCompleted, PaymentStatus: model.PaymentPaid}, gomock.Any()).Return(nil)
		notified := f.expectNotification(notificationModel.EventReservationCompleted)

		res, err := f.svc.Complete(context.Background(), r.ID, admin)
		require.NoError(t, err)
		assert.Equal(t, string(model.StatusCompleted), res.Status)

		assert.Equal(t, string(model.StatusCompleted), waitFor(t, notified).Status)
	})

	t.Run("complete before return date", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentPaid)
		r.Status = model.StatusConfirmed
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil)

		_, err := f.svc.Complete(context.Background(), r.ID, admin)
		assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	})

	t.Run("refund requires admin", func(t *testing.T) {
		f := setup(t)

		_, err := f.svc.Refund(context.Background(), "reservation-1", customer)
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})

	t.Run("refund cancelled paid reservation", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentPaid)
		r.Status = model.StatusCancelled
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(r, nil)
		f.repo.EXPECT().Transition(gomock.Any(), r.ID, r.State(), model.State{Status: model.StatusCancelled, PaymentStatus: model.PaymentRefunded}, gomock.Any()).Return(nil)
		notified := f.expectNotification(notificationModel.EventPaymentRefunded)

		_, err := f.svc.Refund(context.Background(), r.ID, admin)
		require.NoError(t, err)
		assert.Equal(t, notificationModel.EventPaymentRefunded, waitFor(t, notified).Event)
	})
}

func TestReservationService_Expire(t *testing.T) {
	t.Run("past grace period", func(t *testing.T) {
		f := setup(t)

		r := pending(model.PaymentUnpaid)
		r.CreatedAt = now.Add(-25 * time.Hour)
		f.repo.EXPECT().Transition(gomock.Any(), r.ID, r.State(), model.State{Status: model.StatusCancelled, PaymentStatus: model.PaymentExpired}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _, _ model.State, fields map[string]any) error {
				assert.Equal(t, model.ActorSystem, fields[constant.FieldModifiedBy])

				return nil
			})
		notified := f.expectNotification(notificationModel.EventReservationExpired)

		outcome, err := f.svc.Expire(context.Background(), r)
		require.NoError(t, err)
		assert.True(t, outcome.Changed())
		assert.Equal(t, notificationModel.EventReservationExpired, waitFor(t, notified).Event)
	})

	t.Run("within grace period", func(t *testing.T) {
		f := setup(t)

		_, err := f.svc.Expire(context.Background(), pending(model.PaymentUnpaid))
		require.ErrorIs(t, err, model.ErrInvalidTransition)
	})
}
