package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fokus-assistant/fokus-core/core/protocol"
)

//go:embed static
var staticFiles embed.FS

const (
	defaultAddress = "127.0.0.1:8765"

	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Server exposes the runtime over HTTP: a websocket event stream at /ws, a
// liveness probe at /healthz and a small status page at /.
type Server struct {
	address string
	bus     *Bus

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

type Option func(*Server)

func WithAddress(address string) Option {
	return func(s *Server) {
		if address != "" {
			s.address = address
		}
	}
}

func New(bus *Bus, opts ...Option) *Server {
	s := &Server{
		address: defaultAddress,
		bus:     bus,
		upgrader: websocket.Upgrader{
			// The page is served from the same process; anything local may
			// attach.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	static, _ := fs.Sub(staticFiles, "static")

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebsocket)

	s.httpServer = &http.Server{
		Addr:    s.address,
		Handler: otelhttp.NewHandler(mux, "ui"),
	}
	return s
}

// ListenAndServe blocks until the server stops. A regular shutdown returns
// nil.
func (s *Server) ListenAndServe() error {
	logger.Info("ui server listening", "address", s.address)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ui server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"observers": s.bus.SubscriberCount(),
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "observer session")
	defer span.End()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	hello, err := json.Marshal(protocol.NewHello(protocol.StateIdle))
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}
	}

	id, eventsCh := s.bus.Subscribe()
	defer s.bus.Unsubscribe(id)
	logger.Info("observer connected", "subscriber", id, "remote", r.RemoteAddr)

	// Reader runs only to surface close frames; observers never send data.
	readerGone := make(chan struct{})
	go func() {
		defer close(readerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(pingInterval)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readerGone:
			logger.Info("observer disconnected", "subscriber", id)
			return
		case <-pings.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case payload, ok := <-eventsCh:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Info("observer write failed, closing", "subscriber", id, "error", err)
				return
			}
		}
	}
}
