package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"bulksender/internal/logger"
	"bulksender/internal/middleware"
	"bulksender/internal/service"
)

// Services groups what the HTTP API needs
type Services struct {
	Campaigns *service.CampaignService
	Sessions  *service.SessionService
	Health    *service.HealthChecker
}

// NewRouter registers every route of the operator API
func NewRouter(svc Services, log *zap.Logger) *mux.Router {
	log = logger.OrNop(log)

	router := mux.NewRouter()
	router.Use(middleware.Recovery(log), middleware.RequestLogger(log.Named("http")))

	health := NewHealthHandler(svc.Health)
	router.HandleFunc("/health", health.HandleHealth).Methods(http.MethodGet)

	sessions := NewSessionHandler(svc.Sessions)
	router.HandleFunc("/session", sessions.Status).Methods(http.MethodGet)
	router.HandleFunc("/session", sessions.Disconnect).Methods(http.MethodDelete)
	router.HandleFunc("/session/connect", sessions.Connect).Methods(http.MethodPost)

	campaigns := NewCampaignHandler(svc.Campaigns)
	preview := NewPreviewHandler(svc.Campaigns)
	router.HandleFunc("/campaigns/preview", preview.Preview).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/send", campaigns.Send).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/current", campaigns.Current).Methods(http.MethodGet)
	router.HandleFunc("/campaigns/current/cancel", campaigns.Cancel).Methods(http.MethodPost)

	return router
}
