package api

import (
	"net/http"

	"github.com/Keyzen2/spamguard-v2/internal/api/handlers"
	"github.com/gorilla/mux"
)

type Handlers struct {
	Register *handlers.RegisterHandler
	Analyze  *handlers.AnalyzeHandler
	Feedback *handlers.FeedbackHandler
	Stats    *handlers.StatsHandler
	Account  *handlers.AccountHandler
	Webhooks *handlers.WebhookHandler
	Health   http.HandlerFunc
}

// SetupRoutes wires the public surface. Registration and health are open;
// everything else sits behind the API-key middleware.
func SetupRoutes(h Handlers, apiKeyMiddleware mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/api/v1/register", h.Register.Register).Methods("POST")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(apiKeyMiddleware)

	apiRouter.HandleFunc("/analyze", h.Analyze.Analyze).Methods("POST")
	apiRouter.HandleFunc("/feedback", h.Feedback.Submit).Methods("POST")
	apiRouter.HandleFunc("/stats", h.Stats.GetStats).Methods("GET")
	apiRouter.HandleFunc("/account", h.Account.GetAccount).Methods("GET")
	apiRouter.HandleFunc("/account/usage", h.Account.GetUsage).Methods("GET")
	apiRouter.HandleFunc("/webhooks", h.Webhooks.List).Methods("GET")
	apiRouter.HandleFunc("/webhooks", h.Webhooks.Create).Methods("POST")
	apiRouter.HandleFunc("/webhooks/{id}", h.Webhooks.Delete).Methods("DELETE")

	return router
}
