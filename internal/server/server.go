package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/orchestrator"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// Session is the manager surface the server drives.
type Session interface {
	Connect(ctx context.Context) error
	Disconnect()
	State() orchestrator.State
	Status() orchestrator.Status
	Volume() float64
	Events() <-chan orchestrator.Event
}

// Options wires optional collaborators.
type Options struct {
	Metrics http.Handler
	Health  *health.Server
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	sess    Session
	metrics http.Handler
	health  *health.Server

	mu      sync.RWMutex
	clients map[*client]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a server and starts the event and volume broadcasters.
func New(sess Session, opts Options) *Server {
	s := &Server{
		sess:    sess,
		metrics: opts.Metrics,
		health:  opts.Health,
		clients: make(map[*client]struct{}),
		done:    make(chan struct{}),
	}
	s.setHealth(sess.State())
	go s.broadcastEvents()
	go s.broadcastVolume()
	return s
}

// Close stops the broadcasters.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/session", s.handleStatus)
	mux.HandleFunc("POST /api/session/connect", s.handleConnect)
	mux.HandleFunc("POST /api/session/disconnect", s.handleDisconnect)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "http.connect")
	defer span.End()

	err := s.sess.Connect(ctx)
	if err != nil {
		trace.Logger(ctx).Warn("connect request failed", "error", err)
	}
	writeJSON(w, statusCode(err), s.sess.Status())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	trace.Logger(r.Context()).Info("disconnect requested")
	s.sess.Disconnect()
	writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "session": s.sess.State().String()})
}

// statusCode maps a connect failure to an HTTP status.
func statusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	kind, _ := apperrors.Describe(err)
	switch kind {
	case apperrors.CredentialDenied:
		return http.StatusUnauthorized
	case apperrors.PermissionDenied:
		return http.StatusForbidden
	case apperrors.RateLimited:
		return http.StatusTooManyRequests
	case apperrors.InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}

// broadcastEvents fans manager events out to every websocket client and
// mirrors the session state into the health service.
func (s *Server) broadcastEvents() {
	events := s.sess.Events()
	for {
		select {
		case <-s.done:
			return
		case ev := <-events:
			if ev.Type == orchestrator.EventState {
				s.setHealth(ev.State)
			}
			s.broadcast(ev)
		}
	}
}

func (s *Server) broadcastVolume() {
	ticker := time.NewTicker(VolumeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.sess.State() != orchestrator.Connected || s.clientCount() == 0 {
				continue
			}
			s.broadcast(VolumeMessage{Type: "volume", Volume: s.sess.Volume()})
		}
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.send(msg)
	}
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) setHealth(state orchestrator.State) {
	if s.health == nil {
		return
	}
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == orchestrator.Connected {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(HealthService, status)
}
