package repository_test

import (
	"testing"

	"carrental/infras/otel/mocks"
	"carrental/shared/dto"
	"carrental/shared/repository"

	"github.com/stretchr/testify/assert"
)

type audit struct {
	CreatedAt string `db:"created_at"`
}

type plate struct {
	ID      string `db:"id"`
	Number  string `db:"number"`
	Scratch string `db:"-"`
	Ignored string
	audit
}

func TestColumns(t *testing.T) {
	repo := repository.NewRepository[plate]("plate", "plates", "id", nil, mocks.NewOtel())

	assert.Equal(t, []string{"id", "number", "created_at"}, repo.Columns())
}

func TestBuildWhereClause(t *testing.T) {
	repo := repository.NewRepository[plate]("plate", "plates", "id", nil, mocks.NewOtel())

	where, args := repo.BuildWhereClause(dto.FilterGroup{})
	assert.Empty(t, where)
	assert.NotNil(t, args)

	where, args = repo.BuildWhereClause(dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{Field: "id", Value: "p-1", Operator: dto.FilterOperatorEq, Table: "plates"},
			dto.Filter{Field: "number", Value: "B 1", Operator: dto.FilterOperatorNotEq, Table: "plates"},
		},
	})

	assert.Contains(t, where, "WHERE (plates.id = :id AND ")
	assert.Equal(t, "p-1", args["id"])
	assert.Equal(t, "B 1", args["number"])
}
