package reaper_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"carrental/config"
	"carrental/infras/otel/mocks"
	"carrental/internal/domains/reservation/lifecycle"
	reservationMocks "carrental/internal/domains/reservation/mocks"
	"carrental/internal/domains/reservation/model"
	"carrental/internal/workers/reaper"
	"carrental/shared/cache"
	"carrental/shared/clock"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var now = time.Date(2026, time.June, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	repo         *reservationMocks.MockReservation
	reservations *reservationMocks.MockReservationService
	redis        *miniredis.Miniredis
	cfg          *config.Config
	reaper       reaper.Reaper
}

func setup(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{}
	cfg.Reservation.GracePeriodHours = 24
	cfg.Reservation.ReaperLockSeconds = 60
	cfg.Reservation.ExpiryIntervalMinutes = 10

	f := fixture{
		repo:         reservationMocks.NewMockReservation(ctrl),
		reservations: reservationMocks.NewMockReservationService(ctrl),
		redis:        mr,
		cfg:          cfg,
	}
	f.reaper = reaper.New(f.repo, f.reservations, cache.NewRedisCache(client, mocks.NewOtel()), cfg, mocks.NewOtel(), clock.NewFixed(now))

	return f
}

func stale(id string, age time.Duration) model.Reservation {
	r := model.Reservation{
		ID:            id,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
	}
	r.CreatedAt = now.Add(-age)

	return r
}

func expired(r model.Reservation) lifecycle.Outcome {
	return lifecycle.Outcome{
		Event: lifecycle.EventExpire,
		From:  r.State(),
		To:    model.State{Status: model.StatusCancelled, PaymentStatus: model.PaymentExpired},
	}
}

func TestReaper_SweepUsesGraceCutoff(t *testing.T) {
	f := setup(t)

	old := stale("reservation-old", 25*time.Hour)

	f.repo.EXPECT().GetStale(gomock.Any(), now.Add(-24*time.Hour), 100).Return([]model.Reservation{old}, nil)
	f.reservations.EXPECT().Expire(gomock.Any(), old).Return(expired(old), nil)

	report, err := f.reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), report.Cutoff)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Expired)
	assert.False(t, report.Skipped)
	assert.False(t, f.redis.Exists("reaper:lock"), "lock is released after the sweep")
}

func TestReaper_SweepContinuesPastFailures(t *testing.T) {
	f := setup(t)

	first := stale("reservation-1", 30*time.Hour)
	broken := stale("reservation-2", 30*time.Hour)
	paid := stale("reservation-3", 30*time.Hour)
	last := stale("reservation-4", 30*time.Hour)

	f.repo.EXPECT().GetStale(gomock.Any(), gomock.Any(), gomock.Any()).Return([]model.Reservation{first, broken, paid, last}, nil)

	gomock.InOrder(
		f.reservations.EXPECT().Expire(gomock.Any(), first).Return(expired(first), nil),
		f.reservations.EXPECT().Expire(gomock.Any(), broken).Return(lifecycle.Outcome{}, errors.New("database error")),
		f.reservations.EXPECT().Expire(gomock.Any(), paid).Return(lifecycle.Outcome{}, model.ErrInvalidTransition),
		f.reservations.EXPECT().Expire(gomock.Any(), last).Return(expired(last), nil),
	)

	report, err := f.reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 2, report.Expired)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Unchanged)
}

func TestReaper_SweepPagesThroughFullBatches(t *testing.T) {
	f := setup(t)

	batch := make([]model.Reservation, 100)
	for i := range batch {
		batch[i] = stale("reservation-"+strconv.Itoa(i), 48*time.Hour)
	}

	tail := []model.Reservation{stale("reservation-tail", 48*time.Hour)}

	gomock.InOrder(
		f.repo.EXPECT().GetStale(gomock.Any(), gomock.Any(), 100).Return(batch, nil),
		f.repo.EXPECT().GetStale(gomock.Any(), gomock.Any(), 100).Return(tail, nil),
	)
	f.reservations.EXPECT().Expire(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r model.Reservation) (lifecycle.Outcome, error) {
		return expired(r), nil
	}).Times(101)

	report, err := f.reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 101, report.Expired)
}

func TestReaper_SweepSkipsWhenLocked(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.redis.Set("reaper:lock", "another-instance"))

	report, err := f.reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.Scanned)

	got, err := f.redis.Get("reaper:lock")
	require.NoError(t, err)
	assert.Equal(t, "another-instance", got, "foreign lock is left alone")
}

func TestReaper_SweepReportsQueryFailure(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().GetStale(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("database error"))

	_, err := f.reaper.Sweep(context.Background())
	require.Error(t, err)
	assert.False(t, f.redis.Exists("reaper:lock"))
}

func TestReaper_StartStopsWithContext(t *testing.T) {
	f := setup(t)
	f.cfg.Reservation.ReaperEnable = true
	f.repo.EXPECT().GetStale(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		f.reaper.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestReaper_StartSweepsBeforeFirstTick(t *testing.T) {
	f := setup(t)
	f.cfg.Reservation.ReaperEnable = true
	f.cfg.Reservation.ExpiryIntervalMinutes = 60

	old := stale("r-1", 48*time.Hour)
	swept := make(chan string, 1)

	f.repo.EXPECT().GetStale(gomock.Any(), now.Add(-24*time.Hour), 100).Return([]model.Reservation{old}, nil)
	f.reservations.EXPECT().Expire(gomock.Any(), old).DoAndReturn(func(_ context.Context, r model.Reservation) (lifecycle.Outcome, error) {
		swept <- r.ID

		return expired(r), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		f.reaper.Start(ctx)
		close(done)
	}()

	select {
	case id := <-swept:
		assert.Equal(t, "r-1", id)
	case <-time.After(time.Second):
		t.Fatal("reaper did not sweep on start")
	}

	cancel()
	<-done
}

func TestReaper_StartDisabled(t *testing.T) {
	f := setup(t)
	f.cfg.Reservation.ReaperEnable = false

	done := make(chan struct{})

	go func() {
		f.reaper.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled reaper should return immediately")
	}
}
