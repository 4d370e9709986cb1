package ws

import (
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spock-server/internal/hub"
	"github.com/DoyleJ11/spock-server/internal/protocol"
	"github.com/DoyleJ11/spock-server/internal/transport"
)

// Handler seats every websocket peer in the hub. Each text frame carries one
// protocol line in either direction.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}
		wc := transport.NewWSConn(conn, r.RemoteAddr)

		ack, err := h.JoinConn(r.Context(), wc)
		if err != nil {
			if errors.Is(err, hub.ErrClosed) {
				_ = conn.Write(r.Context(), websocket.MessageText, []byte(protocol.EncodeQuit()))
			}
			_ = conn.Close(websocket.StatusTryAgainLater, "not accepting players")
			return
		}
		log.Info("websocket player joined", zap.String("conn", wc.Label()),
			zap.Int("seat", ack.Seat), zap.Int("waiting", ack.Waiting))

		// The session owns the connection from here on; keep the handler
		// alive until it is done with it.
		select {
		case <-wc.Done():
		case <-r.Context().Done():
			_ = wc.Close()
		}
	}
}
