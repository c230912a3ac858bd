package di

import (
	"carrental/infras/otel"
	"carrental/internal/workers/reaper"
	"carrental/transport/http"
)

// Application bundles the long-running parts started by cmd/app.
type Application struct {
	HTTP   *http.HTTP
	Reaper reaper.Reaper
	Otel   otel.Otel
}
