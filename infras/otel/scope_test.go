package otel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"carrental/infras/otel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func record(t *testing.T, fn func(scope otel.Scope)) sdktrace.ReadOnlySpan {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("service").Start(context.Background(), "service.reservation.Create")
	scope := otel.NewScope(span)
	fn(scope)
	scope.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	return spans[0]
}

func TestScope_SetAttributes(t *testing.T) {
	span := record(t, func(scope otel.Scope) {
		scope.SetAttributes(map[string]any{
			"reservation.id":    "r-1",
			"reservation.days":  3,
			"reservation.total": int64(1050000),
			"reservation.paid":  false,
			"reservation.from":  time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
			"reaper.interval":   10 * time.Minute,
		})
		scope.AddEvent("reservation created")
	})

	attributes := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attributes[kv.Key] = kv.Value
	}

	assert.Equal(t, "r-1", attributes["reservation.id"].AsString())
	assert.Equal(t, int64(3), attributes["reservation.days"].AsInt64())
	assert.Equal(t, int64(1050000), attributes["reservation.total"].AsInt64())
	assert.False(t, attributes["reservation.paid"].AsBool())
	assert.Equal(t, "2026-06-10T00:00:00Z", attributes["reservation.from"].AsString())
	assert.Equal(t, "10m0s", attributes["reaper.interval"].AsString())

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "reservation created", span.Events()[0].Name)
}

func TestScope_TraceIfError(t *testing.T) {
	clean := record(t, func(scope otel.Scope) {
		scope.TraceIfError(nil)
	})
	assert.Equal(t, codes.Unset, clean.Status().Code)

	failed := record(t, func(scope otel.Scope) {
		scope.TraceIfError(errors.New("slot unavailable"))
	})
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "slot unavailable", failed.Status().Description)
}
