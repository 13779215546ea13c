package handler

import (
	"net/http"
	"time"

	domainLog "device-fleet-manager/internal/domain/devicelog"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/middleware"
	"device-fleet-manager/internal/usecase/device"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// LogStream hands out live log feeds keyed by MAC address.
type LogStream interface {
	Subscribe(macID string) (<-chan *domainLog.Log, func())
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS middleware and the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamLogs authorizes the caller against the device, then upgrades to a
// WebSocket and pushes each stored log entry as JSON.
func (h *DeviceHandler) StreamLogs(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}

	dev, err := h.service.AuthorizeDevice(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed",
			zap.String("device_id", dev.ID.String()),
			zap.Error(err),
		)
		return
	}
	defer conn.Close()

	feed, cancel := h.stream.Subscribe(dev.MacID)
	defer cancel()

	log := middleware.RequestLogger(c)
	log.Info("Log stream opened",
		zap.String("device_id", dev.ID.String()),
		zap.String("mac_id", dev.MacID),
		logger.Event("log_stream_opened"),
	)

	closed := make(chan struct{})
	go readUntilClosed(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-feed:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(device.ToDeviceLogResponse(entry)); err != nil {
				log.Debug("Log stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			log.Info("Log stream closed",
				zap.String("device_id", dev.ID.String()),
				logger.Event("log_stream_closed"),
			)
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// readUntilClosed drains client frames so pongs and close frames are seen.
func readUntilClosed(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
