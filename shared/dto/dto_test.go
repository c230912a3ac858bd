package dto_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"carrental/shared/constant"
	"carrental/shared/dto"
	"carrental/shared/model"
	"carrental/shared/timezone"
)

func TestNewMetadata(t *testing.T) {
	created := time.Date(2024, 6, 1, 1, 30, 0, 0, time.UTC)
	got := dto.NewMetadata(model.NewMetadata("user-1", created))

	want := created.In(timezone.Location()).Format(constant.DateFormat)
	if got.CreatedAt != want {
		t.Errorf("expected created_at %s, got %s", want, got.CreatedAt)
	}

	if got.ModifiedAt != got.CreatedAt {
		t.Errorf("expected modified_at %s, got %s", got.CreatedAt, got.ModifiedAt)
	}

	if got.CreatedBy != "user-1" || got.ModifiedBy != "user-1" {
		t.Errorf("unexpected actors %q/%q", got.CreatedBy, got.ModifiedBy)
	}
}

func TestQueryParams_FromRequest(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		defaults bool
		expected dto.QueryParams
	}{
		{
			name:     "all parameters",
			query:    url.Values{"page": {"2"}, "limit": {"5"}, "sort_by": {"pickup_date"}, "sort_dir": {"desc"}},
			expected: dto.QueryParams{Page: 2, Limit: 5, SortBy: "pickup_date", SortDir: dto.SortDirDesc},
		},
		{
			name:     "defaults applied",
			defaults: true,
			expected: dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name:     "nothing without defaults",
			expected: dto.QueryParams{},
		},
		{
			name:     "garbage numbers fall back",
			query:    url.Values{"page": {"abc"}, "limit": {"-3"}},
			defaults: true,
			expected: dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name:     "unknown direction ignored",
			query:    url.Values{"page": {"0"}, "sort_by": {"daily_rate"}, "sort_dir": {"sideways"}},
			defaults: true,
			expected: dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit, SortBy: "daily_rate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/reservations?"+tt.query.Encode(), nil)

			var got dto.QueryParams
			got.FromRequest(req, tt.defaults)

			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestFilter_ListOperators(t *testing.T) {
	tests := []struct {
		name      string
		filter    dto.Filter
		wantWhere string
		wantArgs  map[string]any
	}{
		{
			name: "not in with slice",
			filter: dto.Filter{
				Field:    "status",
				Operator: dto.FilterOperatorNotIn,
				Value:    []string{"cancelled", "completed"},
				Table:    "reservations",
			},
			wantWhere: "reservations.status NOT IN (:status_0, :status_1) ",
			wantArgs:  map[string]any{"status_0": "cancelled", "status_1": "completed"},
		},
		{
			name: "in with slice",
			filter: dto.Filter{
				Field:    "payment_status",
				Operator: dto.FilterOperatorIn,
				Value:    []string{"unpaid"},
			},
			wantWhere: "payment_status IN (:payment_status_0) ",
			wantArgs:  map[string]any{"payment_status_0": "unpaid"},
		},
		{
			name: "strictly less",
			filter: dto.Filter{
				Field:    "created_at",
				Operator: dto.FilterOperatorLess,
				Value:    "2024-06-01",
			},
			wantWhere: "created_at < :created_at",
			wantArgs:  map[string]any{"created_at": "2024-06-01"},
		},
		{
			name: "strictly greater with arg name",
			filter: dto.Filter{
				ArgName:  "since",
				Field:    "created_at",
				Operator: dto.FilterOperatorGreater,
				Value:    "2024-06-01",
			},
			wantWhere: "created_at > :since",
			wantArgs:  map[string]any{"since": "2024-06-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.filter.GetWhereClause()

			if where != tt.wantWhere {
				t.Errorf("expected where %q, got %q", tt.wantWhere, where)
			}

			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("expected args %v, got %v", tt.wantArgs, args)
			}
		})
	}
}

func TestFilterGroup_GetWhereClause(t *testing.T) {
	group := dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{Field: "vehicle_id", Operator: dto.FilterOperatorEq, Value: "v-1"},
			dto.Filter{Field: "id", Operator: dto.FilterOperatorNotEq, Value: "r-1"},
		},
	}

	where, args := group.GetWhereClause()

	if where != "(vehicle_id = :vehicle_id AND id != :id)" {
		t.Errorf("unexpected where clause %q", where)
	}

	if args["vehicle_id"] != "v-1" || args["id"] != "r-1" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestQueryParams_RestrictSortBy(t *testing.T) {
	tests := []struct {
		name   string
		sortBy string
		want   string
	}{
		{name: "allowed column", sortBy: "pickup_date", want: "pickup_date"},
		{name: "unknown column", sortBy: "pickup_date; DROP TABLE reservations", want: constant.DefaultValueSortBy},
		{name: "empty", sortBy: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := dto.QueryParams{SortBy: tt.sortBy}
			q.RestrictSortBy("pickup_date", "created_at")

			if q.SortBy != tt.want {
				t.Errorf("expected sort_by %q, got %q", tt.want, q.SortBy)
			}
		})
	}
}
