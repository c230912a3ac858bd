package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"time"

	"carrental/config"
	"carrental/infras/kafka"
	"carrental/infras/otel"
	"carrental/internal/domains/notification/model"
	"carrental/shared/constant"

	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

type Notification interface {
	// Notify publishes n. Delivery problems are logged and never returned.
	Notify(ctx context.Context, n model.Notification)
}

type serviceImpl struct {
	kafka kafka.Client
	cfg   *config.Config
	otel  otel.Otel
}

func New(kafka kafka.Client, cfg *config.Config, otel otel.Otel) Notification {
	return &serviceImpl{
		kafka: kafka,
		cfg:   cfg,
		otel:  otel,
	}
}

func (s *serviceImpl) Notify(ctx context.Context, n model.Notification) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.Notify")
	defer scope.End()

	if n.UserID == constant.Empty {
		log.Warn().Str("reservation", n.ReservationID).Str("event", string(n.Event)).Msg("skipping notification without recipient")

		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := s.kafka.SendMessages(ctx, s.cfg.Kafka.NotificationTopic, kafka.Message{
		Key:   n.ReservationID,
		Value: n,
	})
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).
			Str("reservation", n.ReservationID).
			Str("event", string(n.Event)).
			Msg("failed to publish notification")

		return
	}

	scope.AddEvent("notification published: " + string(n.Event))
}
