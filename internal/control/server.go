// Package control serves the proactive-send HTTP endpoint: externally
// triggered sends that bypass the event pipeline entirely.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/moepig/qqbridge/internal/config"
	"github.com/moepig/qqbridge/internal/logging"
	"github.com/moepig/qqbridge/internal/onebot"
)

// Sender is the shared outbound-send primitive.
type Sender interface {
	Send(target, text string, group bool) error
}

// Server is a minimal single-route HTTP listener.
type Server struct {
	cfg        config.ControlConfig
	sender     Sender
	log        *logging.Logger
	httpServer *http.Server
}

// New creates a control server. The caller is expected to skip Start
// entirely when the configured port is 0.
func New(cfg config.ControlConfig, sender Sender, log *logging.Logger) *Server {
	return &Server{
		cfg:    cfg,
		sender: sender,
		log:    log.Sub("control"),
	}
}

// Start listens until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control: listen on %s: %w", addr, err)
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("control endpoint listening")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler builds the route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/send", s.handleSend)
	mux.HandleFunc("/", handleNotFound)
	return withMiddleware(mux, s.log)
}

type sendRequest struct {
	UserID  onebot.ID `json:"userId"`
	GroupID onebot.ID `json:"groupId"`
	Text    string    `json:"text"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handleNotFound(w, r)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	if req.Text == "" || (req.UserID == "" && req.GroupID == "") {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "text and (userId or groupId) required"})
		return
	}

	var err error
	if req.GroupID != "" {
		err = s.sender.Send(req.GroupID.String(), req.Text, true)
	} else {
		err = s.sender.Send(req.UserID.String(), req.Text, false)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("proactive send failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "not found", http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// withMiddleware wraps a handler with request-ID and request logging.
func withMiddleware(handler http.Handler, log *logging.Logger) http.Handler {
	h := handler
	h = requestIDMiddleware(h)
	h = loggingMiddleware(h, log)
	return h
}

func loggingMiddleware(next http.Handler, log *logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
