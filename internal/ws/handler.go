package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/syncify/syncify/backend/go-services/internal/rooms"
	"github.com/syncify/syncify/backend/go-services/pkg/logger"
	"github.com/syncify/syncify/backend/go-services/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and starts the read/write pumps for a new
// realtime connection.
func ServeWS(w http.ResponseWriter, r *http.Request, registry *rooms.Registry) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := newClient(uuid.NewString(), conn, registry)
	logger.Debugf("ws connected: %s", client.ID())
	metrics.WSConnections.Inc()

	go client.WritePump()
	go func() {
		defer metrics.WSConnections.Dec()
		client.ReadPump()
	}()
}
