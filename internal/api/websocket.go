package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"courtside/internal/broadcast"
	"courtside/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// getClientIP extracts the real client IP, checking proxy headers first
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleWebSocket upgrades the connection, subscribes it to the hub
// and sends the current snapshot immediately so clients do not wait
// for the next poll cycle.
func (rt *Router) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		rt.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := rt.hub.Subscribe()
	remote := getClientIP(req)
	rt.log.Debug().Str("remote", remote).Str("subscriber", sub.ID.String()).Msg("websocket client connected")

	// The conn allows exactly one writer. The greeting goes out here,
	// before writePump exists; events published meanwhile wait in the
	// subscriber's queue and are delivered after it.
	if snap := rt.publisher.Current(); snap != nil {
		greeting := domain.Event{Type: domain.EventSnapshot, Timestamp: snap.Timestamp, Data: snap}
		if data, err := json.Marshal(greeting); err == nil {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				sub.Close()
				conn.Close()
				return
			}
		}
	}

	go rt.writePump(conn, sub)
	go rt.readPump(conn, sub, remote)
}

// readPump consumes control frames and detects disconnects
func (rt *Router) readPump(conn *websocket.Conn, sub *broadcast.Subscriber, remote string) {
	defer func() {
		sub.Close()
		conn.Close()
		rt.log.Debug().Str("remote", remote).Msg("websocket client disconnected")
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				rt.log.Debug().Err(err).Str("remote", remote).Msg("websocket read error")
			}
			return
		}
		// Incoming messages are ignored; the stream is one-way
	}
}

// writePump forwards hub events to the socket and keeps it alive with
// pings. It exits when the subscription channel closes.
func (rt *Router) writePump(conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				rt.log.Error().Err(err).Msg("marshaling event")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
