// Package mocks provides no-op tracing for tests that do not assert on spans.
package mocks

import (
	"context"

	"carrental/infras/otel"
)

type otelImpl struct{}

func NewOtel() otel.Otel {
	return otelImpl{}
}

func (otelImpl) NewScope(ctx context.Context, _, _ string) (context.Context, otel.Scope) {
	return ctx, NewScope()
}

func (otelImpl) Shutdown(context.Context) error {
	return nil
}
