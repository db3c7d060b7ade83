// Copyright © 2024 KubeStack-AI Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// WebSocketEventSink is a reference interfaces.EventSink that fans
// ScanEvents out to every connected websocket client as JSON, keeping
// the clients in a mutex-guarded set with one writer goroutine each.
type WebSocketEventSink struct {
	upgrader  websocket.Upgrader
	clients   map[*wsClient]bool
	clientsMu sync.RWMutex
	log       logger.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWebSocketEventSink builds an idle sink; call ServeHTTP from an
// http.Handler to accept connections.
func NewWebSocketEventSink() *WebSocketEventSink {
	return &WebSocketEventSink{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]bool),
		log:     logger.NewLogger("orchestrator.eventsink.websocket"),
	}
}

// ServeHTTP upgrades the connection and registers it as a broadcast
// recipient until it disconnects.
func (s *WebSocketEventSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, 32)}

	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()

	go s.writePump(client)
}

func (s *WebSocketEventSink) writePump(c *wsClient) {
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
		c.conn.Close()
	}()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Publish implements interfaces.EventSink by JSON-encoding the event
// and fanning it out to every connected client's send buffer. A full
// buffer drops the event for that client rather than blocking.
func (s *WebSocketEventSink) Publish(event models.ScanEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Warnf("encoding scan event failed: %v", err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			s.log.Warn("websocket client send buffer full, dropping event")
		}
	}
}
