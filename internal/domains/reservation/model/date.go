package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"carrental/shared/constant"
)

const day = 24 * time.Hour

// Date is a calendar date held at midnight UTC.
type Date struct {
	time.Time
}

// DateOf keeps the calendar date of t as seen in t's own location.
func DateOf(t time.Time) Date {
	year, month, dayOfMonth := t.Date()

	return Date{time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)}
}

func NewDate(year int, month time.Month, dayOfMonth int) Date {
	return Date{time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(value string) (Date, error) {
	parsed, err := time.Parse(constant.DateOnlyFormat, value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}

	return DateOf(parsed), nil
}

func (d Date) String() string {
	return d.Format(constant.DateOnlyFormat)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// Value writes the date as text so the session time zone never shifts it.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch value := src.(type) {
	case time.Time:
		*d = DateOf(value)

		return nil
	case []byte:
		return d.parseInto(string(value))
	case string:
		return d.parseInto(value)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parseInto(value string) error {
	if len(value) > len(constant.DateOnlyFormat) {
		value = value[:len(constant.DateOnlyFormat)]
	}

	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(raw []byte) error {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}
