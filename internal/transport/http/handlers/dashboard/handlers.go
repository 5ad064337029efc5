// Package dashboardhandler serves the landing view with the aggregate
// counters the server computes.
package dashboardhandler

import (
	"log/slog"
	"net/http"

	"incaweb/internal/remote"
	"incaweb/internal/session"
	"incaweb/internal/transport/http/middleware"
	"incaweb/internal/transport/http/views"
)

type Handler struct {
	API      *remote.Client
	Sessions *session.Store
	Views    *views.Renderer
}

func NewHandler(api *remote.Client, sessions *session.Store, renderer *views.Renderer) *Handler {
	return &Handler{API: api, Sessions: sessions, Views: renderer}
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	data := views.DashboardData{}
	data.Identity = h.Sessions.Current()

	stats, err := h.API.DashboardStats(r.Context())
	if err != nil {
		slog.Error("dashboard stats fetch failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		data.StatsFailed = true
	} else {
		data.Stats = stats
	}
	h.Views.Render(w, "dashboard", data)
}
