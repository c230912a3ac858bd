package handler

import (
	"net/http"
	"sync"

	"carrental/config"
	"carrental/di"
	"carrental/shared/logger"
)

// The serverless runtime owns the listener and gives no background time, so
// stale reservations are swept through POST /v1/admin/reaper/sweep on a cron.
var initialize = sync.OnceValue(func() http.Handler {
	cfg := config.Get()

	logger.Setup(cfg)

	return di.InitializeService().HTTP.Handler()
})

func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	initialize().ServeHTTP(w, r)
}
