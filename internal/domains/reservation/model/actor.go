package model

import (
	"context"
	"slices"

	"carrental/shared/constant"
)

const (
	ActorSystem  = "system"
	ActorGateway = "payment-gateway"
)

// Actor is the caller a transition is attributed to.
type Actor struct {
	ID   string
	Role string
}

func ActorFromContext(ctx context.Context) Actor {
	id, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	return Actor{ID: id, Role: role}
}

func SystemActor() Actor {
	return Actor{ID: ActorSystem, Role: constant.RoleSuperAdmin}
}

// GatewayActor attributes transitions driven by payment gateway callbacks.
func GatewayActor() Actor {
	return Actor{ID: ActorGateway, Role: constant.RoleSuperAdmin}
}

func (a Actor) IsAdmin() bool {
	return slices.Contains([]string{constant.RoleAdmin, constant.RoleSuperAdmin}, a.Role)
}

func (a Actor) Owns(reservation Reservation) bool {
	return a.ID != constant.Empty && a.ID == reservation.CustomerID
}
