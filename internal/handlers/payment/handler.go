package payment

import (
	"net/http"

	"carrental/infras/otel"
	"carrental/internal/domains/payment/model/dto"
	"carrental/internal/domains/payment/service"
	"carrental/shared/constant"
	"carrental/shared/validator"
	"carrental/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Payment
	otel    otel.Otel
}

func New(service service.Payment, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Post("/notification", handler.Notification)
	})
}

// Notification receives asynchronous transaction updates from the payment gateway.
// @Summary Payment gateway notification
// @Description Applies the transaction status to the matching reservation. Duplicate deliveries answer 200 with outcome "replayed".
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body dto.CallbackRequest true "Gateway notification"
// @Success 200 {object} dto.CallbackResponse
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/notification [post]
func (handler *Handler) Notification(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PaymentNotification")
	defer scope.End()

	req := dto.CallbackRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Msg("rejected malformed payment notification")

		response.WithError(writer, err)

		return
	}

	outcome, err := handler.service.HandleCallback(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("failed to handle payment notification")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Payment notification " + string(outcome))

	response.WithRaw(writer, http.StatusOK, dto.CallbackResponse{Outcome: outcome})
}
