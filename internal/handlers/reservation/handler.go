package reservation

import (
	"context"
	"net/http"

	"carrental/infras/otel"
	paymentService "carrental/internal/domains/payment/service"
	"carrental/internal/domains/reservation/model"
	"carrental/internal/domains/reservation/model/dto"
	"carrental/internal/domains/reservation/service"
	"carrental/shared/constant"
	gDto "carrental/shared/dto"
	"carrental/shared/validator"
	"carrental/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var sortableFields = []string{
	model.FieldPickupDate,
	model.FieldReturnDate,
	model.FieldTotalPrice,
	model.FieldStatus,
	model.FieldCreatedAt,
}

type Handler struct {
	service  service.Reservation
	payments paymentService.Payment
	otel     otel.Otel
}

func New(service service.Reservation, payments paymentService.Payment, otel otel.Otel) Handler {
	return Handler{
		service:  service,
		payments: payments,
		otel:     otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/reservations", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateReservation)
		routerGroup.Get("/", handler.GetReservations)
		routerGroup.Get("/mine", handler.GetMyReservations)
		routerGroup.Get("/{id}", handler.GetReservationByID)
		routerGroup.Post("/{id}/cancel", handler.CancelReservation)
		routerGroup.Post("/{id}/payment", handler.InitiatePayment)
		routerGroup.Post("/{id}/proof", handler.SubmitProof)
		routerGroup.Post("/{id}/verify", handler.VerifyPayment)
		routerGroup.Post("/{id}/complete", handler.CompleteReservation)
		routerGroup.Post("/{id}/refund", handler.RefundReservation)
	})
}

// CreateReservation books a vehicle for an inclusive date range.
// @Summary Create a reservation
// @Description Reserve a vehicle. Fails with 409 and the conflicting ranges when the vehicle is taken.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param request body dto.CreateReservationRequest true "Create Reservation Request"
// @Success 201 {object} response.Data[dto.ReservationResponse]
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 422 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations [post]
// @Security BearerAuth
func (handler *Handler) CreateReservation(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateReservation")
	defer scope.End()

	req := dto.CreateReservationRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	reservation, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create reservation")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Reservation created by customer " + reservation.CustomerID)

	response.WithJSON(writer, http.StatusCreated, reservation)
}

// GetReservations lists every reservation.
// @Summary Get all reservations
// @Tags Reservation
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param vehicle_id query string false "Filter by vehicle ID"
// @Param customer_id query string false "Filter by customer ID"
// @Param status query string false "Filter by status (pending, confirmed, completed, cancelled)"
// @Param payment_status query string false "Filter by payment status"
// @Success 200 {object} response.Data[dto.GetReservationsResponse]
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations [get]
// @Security BearerAuth
func (handler *Handler) GetReservations(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetReservations")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)
	queryParams.RestrictSortBy(sortableFields...)

	query := request.URL.Query()

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
	}

	for _, field := range []string{model.FieldVehicleID, model.FieldCustomerID, model.FieldStatus, model.FieldPaymentStatus} {
		value := query.Get(field)
		if value == constant.Empty {
			continue
		}

		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    field,
			Operator: gDto.FilterOperatorEq,
			Value:    value,
			Table:    model.TableName,
		})
	}

	reservations, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get reservations")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, reservations)
}

// GetMyReservations lists the caller's own reservations.
// @Summary Get my reservations
// @Tags Reservation
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Success 200 {object} response.Data[dto.GetReservationsResponse]
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations/mine [get]
// @Security BearerAuth
func (handler *Handler) GetMyReservations(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyReservations")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)
	queryParams.RestrictSortBy(sortableFields...)

	reservations, err := handler.service.GetMine(ctx, model.ActorFromContext(ctx), queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get user reservations")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, reservations)
}

// GetReservationByID returns one reservation to its owner or an admin.
// @Summary Get a reservation by ID
// @Tags Reservation
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Data[dto.ReservationResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetReservationByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetReservationByID")
	defer scope.End()

	reservation, err := handler.service.Get(ctx, chi.URLParam(request, constant.RequestParamID), model.ActorFromContext(ctx))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get reservation by ID")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, reservation)
}

// CancelReservation cancels a reservation on behalf of its owner or an admin.
// @Summary Cancel a reservation
// @Tags Reservation
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Data[dto.TransitionResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/reservations/{id}/cancel [post]
// @Security BearerAuth
func (handler *Handler) CancelReservation(writer http.ResponseWriter, request *http.Request) {
	handler.transition(writer, request, ".CancelReservation", handler.service.Cancel)
}

// InitiatePayment opens or reuses a gateway payment session.
// @Summary Start a gateway payment
// @Tags Reservation
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} object "Payment session with token and redirect_url"
// @Failure 402 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/reservations/{id}/payment [post]
// @Security BearerAuth
func (handler *Handler) InitiatePayment(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".InitiatePayment")
	defer scope.End()

	session, err := handler.payments.InitiatePayment(ctx, chi.URLParam(request, constant.RequestParamID), model.ActorFromContext(ctx))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to initiate payment")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, session)
}

// SubmitProof uploads a manual transfer receipt.
// @Summary Submit payment proof
// @Tags Reservation
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Reservation ID"
// @Param file formData file true "Transfer receipt (png, jpeg or pdf, max 5MB)"
// @Success 200 {object} response.Data[dto.TransitionResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/reservations/{id}/proof [post]
// @Security BearerAuth
func (handler *Handler) SubmitProof(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SubmitProof")
	defer scope.End()

	if err := request.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")

		response.WithError(writer, err)

		return
	}

	req := dto.SubmitProofRequest{}

	file, fileHeader, err := request.FormFile(constant.FormFile)
	if err == nil {
		req.File = fileHeader
		req.FileData = file

		defer file.Close()
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate proof upload")

		response.WithError(writer, err)

		return
	}

	result, err := handler.service.SubmitProof(ctx, chi.URLParam(request, constant.RequestParamID), model.ActorFromContext(ctx), req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to submit payment proof")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, result)
}

// VerifyPayment records an admin decision on a submitted proof.
// @Summary Verify a manual payment
// @Tags Reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body dto.VerifyPaymentRequest true "Verification decision"
// @Success 200 {object} response.Data[dto.TransitionResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/reservations/{id}/verify [post]
// @Security BearerAuth
func (handler *Handler) VerifyPayment(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".VerifyPayment")
	defer scope.End()

	req := dto.VerifyPaymentRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	result, err := handler.service.VerifyPayment(ctx, chi.URLParam(request, constant.RequestParamID), model.ActorFromContext(ctx), req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to verify payment")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, result)
}

// CompleteReservation marks a confirmed rental as returned.
// @Summary Complete a reservation
// @Tags Reservation
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Data[dto.TransitionResponse]
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/reservations/{id}/complete [post]
// @Security BearerAuth
func (handler *Handler) CompleteReservation(writer http.ResponseWriter, request *http.Request) {
	handler.transition(writer, request, ".CompleteReservation", handler.service.Complete)
}

// RefundReservation refunds a cancelled, paid reservation.
// @Summary Refund a reservation
// @Tags Reservation
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Data[dto.TransitionResponse]
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/reservations/{id}/refund [post]
// @Security BearerAuth
func (handler *Handler) RefundReservation(writer http.ResponseWriter, request *http.Request) {
	handler.transition(writer, request, ".RefundReservation", handler.service.Refund)
}

type transitionFunc func(ctx context.Context, id string, actor model.Actor) (dto.TransitionResponse, error)

func (handler *Handler) transition(writer http.ResponseWriter, request *http.Request, name string, apply transitionFunc) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+name)
	defer scope.End()

	result, err := apply(ctx, chi.URLParam(request, constant.RequestParamID), model.ActorFromContext(ctx))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("operation", name[1:]).Msg("failed to transition reservation")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, result)
}
