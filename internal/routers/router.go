package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xYujan/Online-Code-IDE/internal/api"
)

func New(h *api.Handlers, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/api/v1/healthz", h.Health)
	r.Get("/api/v1/rooms/{id}", h.RoomStatus)
	r.Get("/api/v1/rooms/{id}/versions", h.RoomVersions)

	r.Get("/ws/project/{id}", h.ProjectWS)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
