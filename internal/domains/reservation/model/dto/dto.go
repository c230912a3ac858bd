package dto

import (
	"mime/multipart"

	"carrental/internal/domains/reservation/model"
	"carrental/shared"
	gDto "carrental/shared/dto"
	"carrental/shared/failure"
)

const (
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
)

type CreateReservationRequest struct {
	VehicleID     string `json:"vehicle_id"     validate:"required,uuid"`
	PickupDate    string `json:"pickup_date"    validate:"required,datetime=2006-01-02"`
	ReturnDate    string `json:"return_date"    validate:"required,datetime=2006-01-02"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=gateway manual_transfer"`
	Notes         string `json:"notes"          validate:"omitempty,max=500"`
}

func (c *CreateReservationRequest) Range() (model.DateRange, error) {
	return parseRange(c.PickupDate, c.ReturnDate)
}

type AvailabilityRequest struct {
	VehicleID  string `json:"vehicle_id"  validate:"required,uuid"`
	PickupDate string `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	ReturnDate string `json:"return_date" validate:"required,datetime=2006-01-02"`
	ExcludeID  string `json:"exclude_id"  validate:"omitempty,uuid"`
}

func (a *AvailabilityRequest) Range() (model.DateRange, error) {
	return parseRange(a.PickupDate, a.ReturnDate)
}

func parseRange(pickup, ret string) (model.DateRange, error) {
	start, err := model.ParseDate(pickup)
	if err != nil {
		return model.DateRange{}, failure.BadRequest(err) //nolint:wrapcheck
	}

	end, err := model.ParseDate(ret)
	if err != nil {
		return model.DateRange{}, failure.BadRequest(err) //nolint:wrapcheck
	}

	return model.NewDateRange(start, end), nil
}

type SubmitProofRequest struct {
	File     *multipart.FileHeader `json:"file" validate:"required,mimetypes=image/png image/jpg image/jpeg application/pdf,maxfilesize=5"`
	FileData multipart.File        `json:"-"`
}

type VerifyPaymentRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accepted rejected"`
	Reason   string `json:"reason"   validate:"omitempty,max=500"`
}

type ConflictResponse struct {
	PickupDate string `json:"pickup_date"`
	ReturnDate string `json:"return_date"`
	Status     string `json:"status"`
}

type AvailabilityResponse struct {
	VehicleID  string             `json:"vehicle_id"`
	PickupDate string             `json:"pickup_date"`
	ReturnDate string             `json:"return_date"`
	Available  bool               `json:"available"`
	Conflicts  []ConflictResponse `json:"conflicts"`
}

func (a *AvailabilityResponse) FromConflicts(vehicleID string, dates model.DateRange, conflicts []model.Reservation) {
	a.VehicleID = vehicleID
	a.PickupDate = dates.Start.String()
	a.ReturnDate = dates.End.String()
	a.Available = len(conflicts) == 0
	a.Conflicts = Conflicts(conflicts)
}

// Conflicts exposes only the blocked ranges, never who holds them.
func Conflicts(reservations []model.Reservation) []ConflictResponse {
	res := make([]ConflictResponse, len(reservations))
	for i, reservation := range reservations {
		res[i] = ConflictResponse{
			PickupDate: reservation.PickupDate.String(),
			ReturnDate: reservation.ReturnDate.String(),
			Status:     string(reservation.Status),
		}
	}

	return res
}

type ReservationResponse struct {
	ID                   string `json:"id"`
	VehicleID            string `json:"vehicle_id"`
	CustomerID           string `json:"customer_id"`
	PickupDate           string `json:"pickup_date"`
	ReturnDate           string `json:"return_date"`
	Days                 int    `json:"days"`
	DailyRate            int64  `json:"daily_rate"`
	TotalPrice           int64  `json:"total_price"`
	Status               string `json:"status"`
	PaymentStatus        string `json:"payment_status"`
	PaymentMethod        string `json:"payment_method,omitempty"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	PaymentRedirectURL   string `json:"payment_redirect_url,omitempty"`
	ProofReference       string `json:"proof_reference,omitempty"`
	Notes                string `json:"notes,omitempty"`
	gDto.Metadata
}

func (r *ReservationResponse) FromModel(model model.Reservation) {
	r.ID = model.ID
	r.VehicleID = model.VehicleID
	r.CustomerID = model.CustomerID
	r.PickupDate = model.PickupDate.String()
	r.ReturnDate = model.ReturnDate.String()
	r.Days = model.Range().Days()
	r.DailyRate = model.DailyRate
	r.TotalPrice = model.TotalPrice
	r.Status = string(model.Status)
	r.PaymentStatus = string(model.PaymentStatus)
	r.PaymentMethod = model.PaymentMethod
	r.GatewayTransactionID = model.GatewayTransactionID
	r.PaymentRedirectURL = model.PaymentRedirectURL
	r.ProofReference = model.ProofReference
	r.Notes = model.Notes
	r.Metadata = gDto.NewMetadata(model.Metadata)
}

type GetReservationsResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	TotalPage    int                   `json:"total_page"`
	TotalData    int                   `json:"total_data"`
}

func (r *GetReservationsResponse) FromModels(models []model.Reservation, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Reservations = make([]ReservationResponse, len(models))
	for i, mod := range models {
		r.Reservations[i].FromModel(mod)
	}
}

type TransitionResponse struct {
	ID            string `json:"id"`
	Event         string `json:"event"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Replay        bool   `json:"replay"`
}
