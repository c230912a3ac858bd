// Package reaper cancels pending reservations whose payment never arrived.
package reaper

//go:generate go run go.uber.org/mock/mockgen -source=./reaper.go -destination=./mocks/reaper_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carrental/config"
	"carrental/infras/otel"
	"carrental/internal/domains/reservation/model"
	"carrental/internal/domains/reservation/repository"
	"carrental/internal/domains/reservation/service"
	"carrental/shared/cache"
	"carrental/shared/clock"
	"carrental/shared/constant"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	lockKey = "reaper:lock"

	batchSize  = 100
	maxBatches = 50

	defaultInterval    = 10 * time.Minute
	defaultGracePeriod = 24 * time.Hour
	defaultLockSeconds = 300
)

// SweepReport summarises one sweep. Skipped is set when another instance held the lock.
type SweepReport struct {
	Cutoff    time.Time `json:"cutoff"`
	Skipped   bool      `json:"skipped"`
	Scanned   int       `json:"scanned"`
	Expired   int       `json:"expired"`
	Unchanged int       `json:"unchanged"`
	Failed    int       `json:"failed"`
}

type Reaper interface {
	Start(ctx context.Context)
	Sweep(ctx context.Context) (SweepReport, error)
}

type reaperImpl struct {
	repo         repository.Reservation
	reservations service.Reservation
	cache        cache.RedisCache
	cfg          *config.Config
	otel         otel.Otel
	clock        clock.Clock
	owner        string
}

func New(
	repo repository.Reservation,
	reservations service.Reservation,
	cache cache.RedisCache,
	cfg *config.Config,
	otel otel.Otel,
	clock clock.Clock,
) Reaper {
	return &reaperImpl{
		repo:         repo,
		reservations: reservations,
		cache:        cache,
		cfg:          cfg,
		otel:         otel,
		clock:        clock,
		owner:        uuid.NewString(),
	}
}

// Start sweeps once immediately, then on every tick until ctx is cancelled.
func (r *reaperImpl) Start(ctx context.Context) {
	if !r.cfg.Reservation.ReaperEnable {
		log.Info().Msg("reservation reaper disabled")

		return
	}

	interval := time.Duration(r.cfg.Reservation.ExpiryIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Dur("grace", r.gracePeriod()).Msg("reservation reaper started")

	if _, err := r.Sweep(ctx); err != nil {
		log.Error().Err(err).Msg("reservation sweep failed")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reservation reaper stopped")

			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("reservation sweep failed")
			}
		}
	}
}

// Sweep expires every reservation that stayed unpaid past the grace period.
// A reservation that fails to expire is logged and left for the next sweep.
func (r *reaperImpl) Sweep(ctx context.Context) (report SweepReport, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelWorkerScopeName, constant.OtelWorkerScopeName+".reaper.Sweep")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	report.Cutoff = r.clock.Now().Add(-r.gracePeriod())

	acquired, err := r.cache.Acquire(ctx, lockKey, r.owner, r.lockSeconds())
	if err != nil {
		return report, fmt.Errorf("failed to acquire reaper lock: %w", err)
	}

	if !acquired {
		log.Info().Msg("reaper lock held by another instance, skipping sweep")

		report.Skipped = true

		return report, nil
	}

	defer func() {
		if err := r.cache.Release(context.WithoutCancel(ctx), lockKey, r.owner); err != nil {
			log.Warn().Err(err).Msg("failed to release reaper lock")
		}
	}()

	for range maxBatches {
		stale, err := r.repo.GetStale(ctx, report.Cutoff, batchSize)
		if err != nil {
			log.Error().Err(err).Msg("failed to get stale reservations")

			return report, fmt.Errorf("failed to get stale reservations: %w", err)
		}

		expired := r.expireAll(ctx, stale, &report)

		if len(stale) < batchSize || expired == 0 || ctx.Err() != nil {
			break
		}
	}

	scope.SetAttributes(map[string]any{
		"reaper.scanned": report.Scanned,
		"reaper.expired": report.Expired,
		"reaper.failed":  report.Failed,
	})

	log.Info().
		Time("cutoff", report.Cutoff).
		Int("scanned", report.Scanned).
		Int("expired", report.Expired).
		Int("unchanged", report.Unchanged).
		Int("failed", report.Failed).
		Msg("reservation sweep finished")

	return report, nil
}

func (r *reaperImpl) expireAll(ctx context.Context, stale []model.Reservation, report *SweepReport) (expired int) {
	for _, reservation := range stale {
		report.Scanned++

		outcome, err := r.reservations.Expire(ctx, reservation)

		switch {
		case errors.Is(err, model.ErrInvalidTransition):
			log.Info().Str("reservation", reservation.ID).Msg("reservation no longer expirable")

			report.Unchanged++
		case err != nil:
			log.Error().Err(err).Str("reservation", reservation.ID).Msg("failed to expire reservation")

			report.Failed++
		case outcome.Changed():
			report.Expired++
			expired++
		default:
			report.Unchanged++
		}
	}

	return expired
}

func (r *reaperImpl) gracePeriod() time.Duration {
	if r.cfg.Reservation.GracePeriodHours <= 0 {
		return defaultGracePeriod
	}

	return time.Duration(r.cfg.Reservation.GracePeriodHours) * time.Hour
}

func (r *reaperImpl) lockSeconds() int {
	if r.cfg.Reservation.ReaperLockSeconds <= 0 {
		return defaultLockSeconds
	}

	return r.cfg.Reservation.ReaperLockSeconds
}
