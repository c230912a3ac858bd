package dto

import (
	"mime/multipart"

	"carrental/internal/domains/vehicle/model"
	"carrental/shared"
	gDto "carrental/shared/dto"
	gModel "carrental/shared/model"
	"carrental/shared/timezone"

	"github.com/google/uuid"
)

type CreateVehicleRequest struct {
	Name        string                `json:"name"         validate:"required,max=255"`
	Brand       string                `json:"brand"        validate:"omitempty,max=100"`
	PlateNumber string                `json:"plate_number" validate:"required,max=20"`
	Seats       int                   `json:"seats"        validate:"omitempty,min=1,max=60"`
	DailyRate   int64                 `json:"daily_rate"   validate:"required,gt=0"`
	Status      string                `json:"status"       validate:"omitempty,oneof=available unavailable"`
	Image       *multipart.FileHeader `json:"image"        validate:"omitempty,mimetypes=image/png image/jpg image/jpeg,maxfilesize=2"`
	ImageFile   multipart.File        `json:"-"`
}

func (c *CreateVehicleRequest) ToModel(user string, imageURL string) model.Vehicle {
	status := model.StatusAvailable
	if c.Status != "" {
		status = model.Status(c.Status)
	}

	seats := c.Seats
	if seats == 0 {
		seats = 4
	}

	now := timezone.Now()

	return model.Vehicle{
		ID:          uuid.NewString(),
		Name:        c.Name,
		Brand:       c.Brand,
		PlateNumber: c.PlateNumber,
		Seats:       seats,
		DailyRate:   c.DailyRate,
		Status:      status,
		Image:       imageURL,
		Metadata:    gModel.NewMetadata(user, now),
	}
}

type UpdateVehicleRequest struct {
	Name        string                `db:"name"         json:"name"         validate:"omitempty,max=255"`
	Brand       string                `db:"brand"        json:"brand"        validate:"omitempty,max=100"`
	PlateNumber string                `db:"plate_number" json:"plate_number" validate:"omitempty,max=20"`
	Seats       *int                  `db:"seats"        json:"seats"        validate:"omitempty,min=1,max=60"`
	DailyRate   *int64                `db:"daily_rate"   json:"daily_rate"   validate:"omitempty,gt=0"`
	Status      string                `db:"status"       json:"status"       validate:"omitempty,oneof=available unavailable"`
	Image       *multipart.FileHeader `json:"image"      validate:"omitempty,mimetypes=image/png image/jpg image/jpeg,maxfilesize=2"`
	ImageFile   multipart.File        `json:"-"`
}

type VehicleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	PlateNumber string `json:"plate_number"`
	Seats       int    `json:"seats"`
	DailyRate   int64  `json:"daily_rate"`
	Status      string `json:"status"`
	Image       string `json:"image"`
	gDto.Metadata
}

func (r *VehicleResponse) FromModel(model model.Vehicle) {
	r.ID = model.ID
	r.Name = model.Name
	r.Brand = model.Brand
	r.PlateNumber = model.PlateNumber
	r.Seats = model.Seats
	r.DailyRate = model.DailyRate
	r.Status = string(model.Status)
	r.Image = model.Image
	r.Metadata = gDto.NewMetadata(model.Metadata)
}

// Rentable mirrors model.Vehicle.Rentable for cached responses.
func (r VehicleResponse) Rentable() bool {
	return r.Status == string(model.StatusAvailable) && r.DailyRate > 0
}

type GetVehiclesResponse struct {
	Vehicles  []VehicleResponse `json:"vehicles"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetVehiclesResponse) FromModels(models []model.Vehicle, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Vehicles = make([]VehicleResponse, len(models))
	for i, mod := range models {
		r.Vehicles[i].FromModel(mod)
	}
}
