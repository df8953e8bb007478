// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accel_fusion/internal/config"
	"github.com/relabs-tech/accel_fusion/internal/logger"
	"github.com/relabs-tech/accel_fusion/internal/sinks"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsClient is one browser connection. Writes happen only on its own
// goroutine; a slow client loses messages instead of stalling the rest.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Monitor keeps the latest fused vector received over MQTT and pushes every
// new one to connected WebSocket clients.
type Monitor struct {
	mu      sync.RWMutex
	last    []byte
	clients map[*wsClient]struct{}

	log zerolog.Logger
}

func NewMonitor(log zerolog.Logger) *Monitor {
	return &Monitor{clients: map[*wsClient]struct{}{}, log: log}
}

// Accept stores p and broadcasts it.
func (m *Monitor) Accept(p sinks.Payload) {
	b, err := json.Marshal(p)
	if err != nil {
		m.log.Error().Err(err).Msg("payload marshal failed")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = b
	for c := range m.clients {
		select {
		case c.send <- b:
		default:
			m.log.Debug().Str("client", c.conn.RemoteAddr().String()).Msg("client behind, dropping vector")
		}
	}
}

// HandleMessage is the MQTT subscription callback.
func (m *Monitor) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	var p sinks.Payload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		m.log.Warn().Str("topic", msg.Topic()).Err(err).Msg("payload unmarshal failed")
		return
	}
	m.Accept(p)
}

// Handler serves the JSON API, the WebSocket stream and static files from
// ./web.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/fused", m.handleFused)
	mux.HandleFunc("/ws", m.handleWS)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

func (m *Monitor) handleFused(w http.ResponseWriter, _ *http.Request) {
	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()

	if last == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(last); err != nil {
		m.log.Debug().Err(err).Msg("response write failed")
	}
}

func (m *Monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 16)}
	m.mu.Lock()
	m.clients[c] = struct{}{}
	if m.last != nil {
		c.send <- m.last
	}
	m.mu.Unlock()
	m.log.Info().Str("client", conn.RemoteAddr().String()).Msg("websocket client connected")

	go c.writeLoop()

	// Clients never send anything useful; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.log.Warn().Err(err).Msg("websocket error")
			}
			break
		}
	}

	m.mu.Lock()
	delete(m.clients, c)
	close(c.send)
	m.mu.Unlock()
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

// RunMonitor subscribes to the fused vector topic and serves it over HTTP
// until interrupted.
func RunMonitor(cfg *config.Config) error {
	log := logger.With("monitor")
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("%w: MQTT_BROKER is not set", ErrFatalInit)
	}

	mon := NewMonitor(log)

	client, err := sinks.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-monitor")
	if err != nil {
		return fatalInit("monitor", err)
	}
	defer client.Disconnect(250)
	log.Info().Str("broker", cfg.MQTTBroker).Msg("connected to MQTT broker")

	token := client.Subscribe(cfg.TopicFused, 0, mon.HandleMessage)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.TopicFused, token.Error())
	}
	log.Info().Str("topic", cfg.TopicFused).Msg("subscribed")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MonitorPort),
		Handler:           mon.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := notifyContext()
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("monitor listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
