package admin

import (
	"net/http"

	"carrental/infras/otel"
	"carrental/internal/workers/reaper"
	"carrental/shared/constant"
	"carrental/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	reaper reaper.Reaper
	otel   otel.Otel
}

func New(reaper reaper.Reaper, otel otel.Otel) Handler {
	return Handler{
		reaper: reaper,
		otel:   otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/admin", func(routerGroup chi.Router) {
		routerGroup.Post("/reaper/sweep", handler.Sweep)
	})
}

// Sweep runs one expiry pass immediately instead of waiting for the next tick.
// @Summary Run the stale reservation sweep
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Data[reaper.SweepReport]
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/admin/reaper/sweep [post]
// @Security BearerAuth
func (handler *Handler) Sweep(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Sweep")
	defer scope.End()

	report, err := handler.reaper.Sweep(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to run reaper sweep")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, report)
}
