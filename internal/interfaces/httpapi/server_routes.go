package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /v1/debug/data-files", handler.ListDataFiles)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerInsightRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/sports", handler.ListSports)
	mux.HandleFunc("POST /api/{sport}/generate-insights", handler.GenerateInsights)
}

func registerGenerationRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/generations", handler.ListGenerations)
	mux.HandleFunc("GET /v1/generations/{generationID}", handler.GetGeneration)
	mux.HandleFunc("PUT /v1/generations/{generationID}/edits", handler.SaveGenerationEdits)
	mux.HandleFunc("DELETE /v1/generations/{generationID}/edits", handler.ClearGenerationEdits)
	mux.HandleFunc("GET /v1/generations/{generationID}/view", handler.GetGenerationView)
}
