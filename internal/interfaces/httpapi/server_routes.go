package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /privacy_policy", handler.PrivacyPolicy)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerLotteryRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/kqsx/summary", handler.GetSummary)
	mux.HandleFunc("GET /v1/kqsx/check", handler.CheckTicket)
	mux.HandleFunc("GET /v1/kqsx/frequency", handler.ListFrequencies)
	mux.HandleFunc("GET /v1/random_numbers", handler.RandomNumbers)
}
