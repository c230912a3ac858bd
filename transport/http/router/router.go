package router

import (
	"carrental/internal/handlers/admin"
	"carrental/internal/handlers/payment"
	"carrental/internal/handlers/reservation"
	"carrental/internal/handlers/vehicle"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Vehicle     vehicle.Handler
	Reservation reservation.Handler
	Payment     payment.Handler
	Admin       admin.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Vehicle.Router(routerGroup)
		r.DomainHandlers.Reservation.Router(routerGroup)
		r.DomainHandlers.Payment.Router(routerGroup)
		r.DomainHandlers.Admin.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}
