package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Streamer pushes every new snapshot to WebSocket clients.
type Streamer struct {
	source   SnapshotSource
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// NewStreamer creates a Streamer accepting the given browser origins.
// "*" accepts any origin.
func NewStreamer(source SnapshotSource, allowedOrigins []string, log *zap.SugaredLogger) *Streamer {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Streamer{
		source: source,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Stream upgrades the connection, sends the current snapshot, then one
// message per tick until the client goes away.
func (s *Streamer) Stream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates := s.source.Subscribe()
	defer s.source.Unsubscribe(updates)

	done := make(chan struct{})
	go s.readPump(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := s.write(conn, s.source.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case snap, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			if err := s.write(conn, snap); err != nil {
				s.log.Debugw("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Streamer) write(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// readPump drains client frames so control messages are processed, and
// closes done when the connection drops.
func (s *Streamer) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
