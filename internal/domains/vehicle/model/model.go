package model

import "carrental/shared/model"

const (
	TableName  = "vehicles"
	EntityName = "vehicle"

	FieldID          = "id"
	FieldName        = "name"
	FieldBrand       = "brand"
	FieldPlateNumber = "plate_number"
	FieldSeats       = "seats"
	FieldDailyRate   = "daily_rate"
	FieldStatus      = "status"
	FieldImage       = "image"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

type Vehicle struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Brand       string `db:"brand"`
	PlateNumber string `db:"plate_number"`
	Seats       int    `db:"seats"`
	DailyRate   int64  `db:"daily_rate"`
	Status      Status `db:"status"`
	Image       string `db:"image"`
	model.Metadata
}

// Rentable reports whether new reservations may be placed on the vehicle.
func (v Vehicle) Rentable() bool {
	return v.Status == StatusAvailable && v.DailyRate > 0
}
