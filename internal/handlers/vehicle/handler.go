package vehicle

import (
	"net/http"

	"carrental/infras/otel"
	reservationDto "carrental/internal/domains/reservation/model/dto"
	reservationService "carrental/internal/domains/reservation/service"
	"carrental/internal/domains/vehicle/model"
	"carrental/internal/domains/vehicle/model/dto"
	"carrental/internal/domains/vehicle/service"
	"carrental/shared"
	"carrental/shared/constant"
	gDto "carrental/shared/dto"
	"carrental/shared/validator"
	"carrental/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var sortableFields = []string{
	model.FieldName,
	model.FieldBrand,
	model.FieldDailyRate,
	model.FieldSeats,
	constant.FieldCreatedAt,
}

type Handler struct {
	service      service.Vehicle
	reservations reservationService.Reservation
	otel         otel.Otel
}

func New(service service.Vehicle, reservations reservationService.Reservation, otel otel.Otel) Handler {
	return Handler{
		service:      service,
		reservations: reservations,
		otel:         otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/vehicles", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateVehicle)
		routerGroup.Get("/", handler.GetVehicles)
		routerGroup.Get("/{id}", handler.GetVehicleByID)
		routerGroup.Patch("/{id}", handler.UpdateVehicle)
		routerGroup.Delete("/{id}", handler.DeleteVehicle)
		routerGroup.Get("/{id}/availability", handler.CheckAvailability)
	})
}

// CreateVehicle handles the creation of a new vehicle.
// @Summary Create a new vehicle
// @Description Register a vehicle in the rental fleet.
// @Tags Vehicle
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Vehicle name"
// @Param brand formData string false "Vehicle brand"
// @Param plate_number formData string true "Plate number"
// @Param seats formData integer false "Seat count"
// @Param daily_rate formData integer true "Daily rate in the smallest currency unit"
// @Param status formData string false "available or unavailable"
// @Param image formData file false "Vehicle image"
// @Success 201 {object} response.Data[dto.VehicleResponse]
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/vehicles [post]
// @Security BearerAuth
func (handler *Handler) CreateVehicle(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateVehicle")
	defer scope.End()

	if err := request.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")
		response.WithError(writer, err)

		return
	}

	req := dto.CreateVehicleRequest{
		Name:        request.FormValue(model.FieldName),
		Brand:       request.FormValue(model.FieldBrand),
		PlateNumber: request.FormValue(model.FieldPlateNumber),
		Status:      request.FormValue(model.FieldStatus),
	}

	if seats, err := shared.ConvertStringToInt(request.FormValue(model.FieldSeats)); err == nil {
		req.Seats = seats
	}

	if rate, err := shared.ConvertStringToInt64(request.FormValue(model.FieldDailyRate)); err == nil {
		req.DailyRate = rate
	}

	file, fileHeader, err := request.FormFile(model.FieldImage)
	if err == nil {
		req.Image = fileHeader
		req.ImageFile = file

		defer file.Close()
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(writer, err)

		return
	}

	vehicle, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create vehicle")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Vehicle created")

	response.WithJSON(writer, http.StatusCreated, vehicle)
}

// GetVehicles lists vehicles.
// @Summary Get all vehicles
// @Tags Vehicle
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param name query string false "Filter by name"
// @Param brand query string false "Filter by brand"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Data[dto.GetVehiclesResponse]
// @Failure 500 {object} response.Error
// @Router /v1/vehicles [get]
func (handler *Handler) GetVehicles(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetVehicles")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)
	queryParams.RestrictSortBy(sortableFields...)

	query := r.URL.Query()

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldName, Operator: gDto.FilterOperatorLike, Value: query.Get(model.FieldName), Table: model.TableName},
			gDto.Filter{Field: model.FieldBrand, Operator: gDto.FilterOperatorLike, Value: query.Get(model.FieldBrand), Table: model.TableName},
		},
	}

	if status := query.Get(model.FieldStatus); status != constant.Empty {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldStatus,
			Operator: gDto.FilterOperatorEq,
			Value:    status,
			Table:    model.TableName,
		})
	}

	vehicles, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get vehicles")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, vehicles)
}

// GetVehicleByID retrieves a vehicle.
// @Summary Get a vehicle by ID
// @Tags Vehicle
// @Produce json
// @Param id path string true "Vehicle ID"
// @Success 200 {object} response.Data[dto.VehicleResponse]
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/vehicles/{id} [get]
func (handler *Handler) GetVehicleByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetVehicleByID")
	defer scope.End()

	vehicle, err := handler.service.Get(ctx, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get vehicle by ID")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, vehicle)
}

// UpdateVehicle updates a vehicle.
// @Summary Update a vehicle by ID
// @Tags Vehicle
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Vehicle ID"
// @Param name formData string false "Vehicle name"
// @Param brand formData string false "Vehicle brand"
// @Param plate_number formData string false "Plate number"
// @Param seats formData integer false "Seat count"
// @Param daily_rate formData integer false "Daily rate"
// @Param status formData string false "available or unavailable"
// @Param image formData file false "Vehicle image"
// @Success 200 {object} response.Message
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/vehicles/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateVehicle")
	defer scope.End()

	if err := r.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")
		response.WithError(w, err)

		return
	}

	req := dto.UpdateVehicleRequest{
		Name:        r.FormValue(model.FieldName),
		Brand:       r.FormValue(model.FieldBrand),
		PlateNumber: r.FormValue(model.FieldPlateNumber),
		Status:      r.FormValue(model.FieldStatus),
	}

	if seats, err := shared.ConvertStringToInt(r.FormValue(model.FieldSeats)); err == nil {
		req.Seats = &seats
	}

	if rate, err := shared.ConvertStringToInt64(r.FormValue(model.FieldDailyRate)); err == nil {
		req.DailyRate = &rate
	}

	file, fileHeader, err := r.FormFile(model.FieldImage)
	if err == nil {
		req.Image = fileHeader
		req.ImageFile = file

		defer file.Close()
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, chi.URLParam(r, constant.RequestParamID)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update vehicle")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Vehicle updated successfully")
}

// DeleteVehicle removes a vehicle that has no reservations.
// @Summary Delete a vehicle by ID
// @Tags Vehicle
// @Produce json
// @Param id path string true "Vehicle ID"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/vehicles/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteVehicle")
	defer scope.End()

	if err := handler.service.Delete(ctx, chi.URLParam(r, constant.RequestParamID)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete vehicle")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Vehicle deleted successfully")
}

// CheckAvailability reports whether a vehicle is free for a date range.
// @Summary Check vehicle availability
// @Description Both dates are inclusive calendar days.
// @Tags Vehicle
// @Produce json
// @Param id path string true "Vehicle ID"
// @Param pickup_date query string true "Pickup date (YYYY-MM-DD)"
// @Param return_date query string true "Return date (YYYY-MM-DD)"
// @Param exclude_id query string false "Reservation to ignore"
// @Success 200 {object} response.Data[reservationDto.AvailabilityResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/vehicles/{id}/availability [get]
func (handler *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckAvailability")
	defer scope.End()

	query := r.URL.Query()

	req := reservationDto.AvailabilityRequest{
		VehicleID:  chi.URLParam(r, constant.RequestParamID),
		PickupDate: query.Get("pickup_date"),
		ReturnDate: query.Get("return_date"),
		ExcludeID:  query.Get("exclude_id"),
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	dates, err := req.Range()
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	availability, err := handler.reservations.CheckAvailability(ctx, req.VehicleID, dates, req.ExcludeID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to check availability")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, availability)
}
