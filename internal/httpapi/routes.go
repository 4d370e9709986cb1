package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spock-server/internal/history"
	"github.com/DoyleJ11/spock-server/internal/hub"
	"github.com/DoyleJ11/spock-server/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz(h))
	r.Get("/sessions", ListSessions(h))
	if lister, ok := h.Recorder().(history.Lister); ok {
		r.Get("/history", ListHistory(lister))
	}
	r.Get("/ws", ws.Handler(h, log))
	return r
}
