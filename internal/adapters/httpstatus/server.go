package httpstatus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jose-valero/dark-study-bot/internal/app/cycle"
)

// StatusSource: vista de sólo lectura del motor (cycle.Manager).
type StatusSource interface {
	Status(guildID string) (cycle.Snapshot, bool)
	Running() []cycle.Snapshot
}

type Server struct {
	status StatusSource
	log    *slog.Logger
	mux    *http.ServeMux
	srv    *http.Server
}

func New(status StatusSource, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{status: status, log: log.With("component", "http"), mux: http.NewServeMux()}
	s.routes()
	s.srv = &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /guilds/{guildID}/cycle", s.handleCycle)
}

func (s *Server) Handler() http.Handler { return s.mux }

type healthResponse struct {
	Status string `json:"status"`
	Cycles int    `json:"running_cycles"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Cycles: len(s.status.Running())})
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("guildID")
	snap, ok := s.status.Status(guildID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no running cycle", "guild_id": guildID})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start bloquea hasta Shutdown. Un error de listen se devuelve.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info("🌐 HTTP listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
