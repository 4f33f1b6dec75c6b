package httpapi

import (
	"net/http"

	"github.com/riskibarqy/career-engine/internal/usecase"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, cfg RouterConfig) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if !cfg.SwaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerGameRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/games/{gameID}/competitions", handler.ListCompetitions)
	mux.HandleFunc("POST /v1/games/{gameID}/advance", handler.AdvanceMatchday)
	mux.HandleFunc("POST /v1/games/{gameID}/matches/{matchID}/finalize", handler.FinalizeMatch)
	mux.HandleFunc("POST /v1/games/{gameID}/matches/{matchID}/resimulate", handler.ResimulateMatch)
	mux.HandleFunc("POST /v1/games/{gameID}/matches/{matchID}/resimulate-extra-time", handler.ResimulateExtraTime)
	mux.HandleFunc("POST /v1/games/{gameID}/season-end", handler.RunSeasonEnd)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST "+usecase.CareerActionsJobPath, RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCareerActionsJob)))
}
