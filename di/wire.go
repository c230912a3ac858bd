//go:build wireinject
// +build wireinject

package di

import (
	"carrental/config"
	"carrental/infras/gateway"
	"carrental/infras/jwt"
	"carrental/infras/kafka"
	"carrental/infras/otel"
	"carrental/infras/postgres"
	"carrental/infras/redis"
	"carrental/infras/s3"
	notificationService "carrental/internal/domains/notification/service"
	paymentService "carrental/internal/domains/payment/service"
	reservationRepository "carrental/internal/domains/reservation/repository"
	reservationService "carrental/internal/domains/reservation/service"
	vehicleRepository "carrental/internal/domains/vehicle/repository"
	vehicleService "carrental/internal/domains/vehicle/service"
	adminHandler "carrental/internal/handlers/admin"
	paymentHandler "carrental/internal/handlers/payment"
	reservationHandler "carrental/internal/handlers/reservation"
	vehicleHandler "carrental/internal/handlers/vehicle"
	"carrental/internal/workers/reaper"
	"carrental/permissions"
	"carrental/shared/cache"
	"carrental/shared/clock"
	"carrental/transport/http"
	"carrental/transport/http/middleware"
	"carrental/transport/http/router"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	s3.New,
	kafka.New,
	gateway.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	clock.New,
)

var vehicleDomain = wire.NewSet(
	vehicleRepository.New,
	vehicleService.New,
)

var reservationDomain = wire.NewSet(
	reservationRepository.New,
	reservationService.New,
)

var domains = wire.NewSet(
	vehicleDomain,
	reservationDomain,
	notificationService.New,
	paymentService.New,
)

var workers = wire.NewSet(
	reaper.New,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	vehicleHandler.New,
	reservationHandler.New,
	paymentHandler.New,
	adminHandler.New,
	router.New,
)

func InitializeService() *Application {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		workers,
		routing,
		http.New,
		wire.Struct(new(Application), "*"),
	)

	return &Application{}
}
