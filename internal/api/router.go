package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/propdesk/internal/api/handlers"
	"github.com/wonny/propdesk/pkg/logger"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(analysisHandler *handlers.AnalysisHandler, healthHandler *handlers.HealthHandler, limiter Limiter, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}

	r := mux.NewRouter()

	// Health checks
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")
	r.HandleFunc("/health/live", healthHandler.Live).Methods("GET")

	// API v1
	api := r.PathPrefix("/api/v1/ylos").Subrouter()
	if limiter != nil {
		api.Use(rateLimitMiddleware(limiter, log))
	}

	api.HandleFunc("/analyze", analysisHandler.Analyze).Methods("POST")
	api.HandleFunc("/daily", analysisHandler.Daily).Methods("POST")
	api.HandleFunc("/rules/{conta_type}", analysisHandler.Rules).Methods("GET")
	api.HandleFunc("/csv-example", analysisHandler.CSVExample).Methods("GET")
	api.HandleFunc("/calendar", analysisHandler.Calendar).Methods("GET")

	// Apply middleware
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}
