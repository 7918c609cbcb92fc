package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"farmScope/internal/farm"
	"farmScope/internal/model"
)

// SnapshotSource exposes the latest published snapshot.
type SnapshotSource interface {
	Latest() *model.Snapshot
}

const (
	clientBuffer = 4
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Server serves snapshots over HTTP and websocket.
type Server struct {
	addr     string
	source   SnapshotSource
	gatherer prometheus.Gatherer
	router   *mux.Router
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[chan *model.Snapshot]struct{}
}

func New(addr string, source SnapshotSource, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		addr:     addr,
		source:   source,
		gatherer: gatherer,
		router:   mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[chan *model.Snapshot]struct{}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	s.router.HandleFunc("/farms", s.handleFarms).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebsocket).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

// Broadcast forwards snapshots to websocket clients until ctx is done or
// snapshots is closed. Slow clients miss snapshots instead of blocking others.
func (s *Server) Broadcast(ctx context.Context, snapshots <-chan *model.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			s.mu.Lock()
			for client := range s.clients {
				select {
				case client <- snapshot:
				default:
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	latest := s.source.Latest()
	status := map[string]interface{}{
		"status":    "ok",
		"published": latest != nil,
	}
	if latest != nil {
		status["seq"] = latest.Seq
		status["loading"] = latest.Loading
		status["taken_at"] = latest.TakenAt
	}
	s.writeJSONResponse(w, http.StatusOK, status)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	latest := s.source.Latest()
	if latest == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, latest)
}

func (s *Server) handleFarms(w http.ResponseWriter, r *http.Request) {
	latest := s.source.Latest()
	if latest == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	pools := farm.Filter(latest.PoolFarms, r.URL.Query().Get("q"))
	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"seq":     latest.Seq,
		"loading": latest.Loading,
		"farms":   pools,
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := make(chan *model.Snapshot, clientBuffer)
	if latest := s.source.Latest(); latest != nil {
		client <- latest
	}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	go s.readPump(conn, client)
	s.writePump(conn, client)
}

// readPump discards client messages and unregisters the client once the connection ends.
func (s *Server) readPump(conn *websocket.Conn, client chan *model.Snapshot) {
	defer s.removeClient(client)
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

func (s *Server) writePump(conn *websocket.Conn, client chan *model.Snapshot) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case snapshot, ok := <-client:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) removeClient(client chan *model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client)
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		delete(s.clients, client)
		close(client)
	}
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode json response", zap.Error(err))
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", wrapper.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// responseWriterWrapper captures the status code and keeps hijacking available for websockets.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}
