package shared_test

import (
	"testing"
	"time"

	"carrental/shared"
	"carrental/shared/constant"
	"carrental/shared/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertStringToInt(t *testing.T) {
	seats, err := shared.ConvertStringToInt("7")
	require.NoError(t, err)
	assert.Equal(t, 7, seats)

	_, err = shared.ConvertStringToInt("seven")
	assert.ErrorContains(t, err, `"seven"`)

	rate, err := shared.ConvertStringToInt64("350000")
	require.NoError(t, err)
	assert.Equal(t, int64(350000), rate)

	_, err = shared.ConvertStringToInt64("")
	assert.Error(t, err)
}

func TestCalculateTotalPage(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		limit    int
		expected int
	}{
		{name: "no rows still has one page", total: 0, limit: 10, expected: 1},
		{name: "invalid limit", total: 42, limit: 0, expected: 1},
		{name: "exact division", total: 40, limit: 10, expected: 4},
		{name: "partial last page", total: 41, limit: 10, expected: 5},
		{name: "fewer rows than limit", total: 3, limit: 10, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shared.CalculateTotalPage(tt.total, tt.limit))
		})
	}
}

type vehiclePatch struct {
	Name      string `db:"name"`
	Seats     *int   `db:"seats"`
	DailyRate *int64 `db:"daily_rate"`
	Status    string `db:"status"`
	Upload    string
}

func TestTransformFields(t *testing.T) {
	seats := 5

	fields := shared.TransformFields(vehiclePatch{
		Name:   "Innova Zenix",
		Seats:  &seats,
		Upload: "ignored without a db tag",
	}, "admin-1")

	assert.Equal(t, "Innova Zenix", fields["name"])
	assert.Equal(t, &seats, fields["seats"])
	assert.NotContains(t, fields, "daily_rate", "nil pointers are left untouched")
	assert.NotContains(t, fields, "status", "empty strings are left untouched")
	assert.NotContains(t, fields, "Upload")
	assert.Equal(t, "admin-1", fields[constant.FieldModifiedBy])

	modifiedAt, ok := fields[constant.FieldModifiedAt].(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), modifiedAt, time.Minute)
}

func TestFilterByID(t *testing.T) {
	filter := shared.FilterByID("vehicle-1", "id", "vehicles")

	require.Len(t, filter.Filters, 1)
	assert.Equal(t, dto.Filter{
		Field:    "id",
		Value:    "vehicle-1",
		Operator: dto.FilterOperatorEq,
		Table:    "vehicles",
	}, filter.Filters[0])

	where, args := filter.GetWhereClause()
	assert.Equal(t, "(vehicles.id = :id)", where)
	assert.Equal(t, map[string]any{"id": "vehicle-1"}, args)
}
