// Package server exposes the pet over HTTP. Displays connect on /ws to
// receive face frames and to stream phone sensors and touch gestures
// back to the engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/expression"
	"github.com/moorebrett0/mochi/internal/render"
)

// Runner serialises access to the engine.
type Runner interface {
	Post(fn func()) bool
	Do(ctx context.Context, fn func()) error
	Now() time.Time
}

// envelope is the wire format of every outbound frame.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

type helloData struct {
	ClientID string `json:"client_id"`
	Persona  string `json:"persona,omitempty"`
}

type expressionData struct {
	Expression expression.Expression `json:"expression"`
	Params     expression.Params     `json:"params"`
}

type effectData struct {
	Effect     expression.Effect `json:"effect"`
	Animation  string            `json:"animation"`
	DurationMS int64             `json:"duration_ms"`
}

type stopData struct {
	Animation string `json:"animation"`
}

// Config configures the server.
type Config struct {
	Hub     HubConfig
	Persona string // announced in hello
	// SnapshotTimeout bounds the trip through the loop for state_init
	// and GET /state.
	SnapshotTimeout time.Duration
}

// Server is a render.Sink that broadcasts frames to displays.
type Server struct {
	logger *slog.Logger
	hub    *Hub
	loop   Runner
	eng    *engine.Engine
	cfg    Config
}

// New creates a Server. eng must only be touched through loop.
func New(logger *slog.Logger, loop Runner, eng *engine.Engine, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = time.Second
	}
	return &Server{
		logger: logger,
		hub:    NewHub(logger, cfg.Hub),
		loop:   loop,
		eng:    eng,
		cfg:    cfg,
	}
}

// Hub returns the client hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Run serves on addr and runs the hub until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Show implements render.Sink.
func (s *Server) Show(fr render.Frame) {
	switch fr.Kind {
	case render.KindExpression:
		s.Publish("expression", fr.At, expressionData{Expression: fr.Face.Expression, Params: fr.Face.Params})
	case render.KindEffect:
		s.Publish("effect", fr.At, effectData{
			Effect:     fr.Effect,
			Animation:  fr.Animation,
			DurationMS: fr.Duration.Milliseconds(),
		})
	case render.KindStop:
		s.Publish("stop", fr.At, stopData{Animation: fr.Animation})
	}
}

// Publish broadcasts an arbitrary event, such as a speech bubble.
func (s *Server) Publish(typ string, at time.Time, data any) {
	msg, err := encode(typ, at, data)
	if err != nil {
		s.logger.Warn("server: marshal failed", "type", typ, "err", err)
		return
	}
	s.hub.BroadcastBytes(msg)
}

func encode(typ string, at time.Time, data any) ([]byte, error) {
	env := envelope{Type: typ, Data: data}
	if !at.IsZero() {
		ts := at.UTC()
		env.Ts = &ts
	}
	return json.Marshal(env)
}

// snapshot reads the engine state through the loop.
func (s *Server) snapshot(ctx context.Context) (engine.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SnapshotTimeout)
	defer cancel()

	var snap engine.Snapshot
	err := s.loop.Do(ctx, func() { snap = s.eng.Snapshot() })
	return snap, err
}

var upgrader = websocket.Upgrader{
	// Displays are served from anywhere on the local network.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("server: websocket upgrade failed", "err", err)
		return
	}

	client := newClient(s.hub, conn, r.RemoteAddr, s.handleInbound)

	// Queue the greeting before registering so it precedes any broadcast.
	hello, _ := encode("hello", s.loop.Now(), helloData{ClientID: client.id, Persona: s.cfg.Persona})
	client.send <- hello

	snap, err := s.snapshot(r.Context())
	if err != nil {
		s.logger.Warn("server: snapshot for new display failed", "client", client.id, "err", err)
		_ = conn.Close()
		return
	}
	initMsg, err := encode("state_init", s.loop.Now(), snap)
	if err != nil {
		s.logger.Warn("server: marshal state_init failed", "err", err)
		_ = conn.Close()
		return
	}
	client.send <- initMsg

	if !s.hub.add(client) {
		_ = conn.Close()
		return
	}

	// The pumps outlive the request; the hub and socket errors end them.
	go client.writePump()
	go client.readPump()
}

// handleInbound decodes a display message and posts it to the engine.
func (s *Server) handleInbound(msg []byte) {
	typ, apply, err := decode(msg, s.loop.Now)
	if err != nil {
		s.logger.Debug("server: dropping inbound message", "type", typ, "err", err)
		return
	}
	if !s.loop.Post(func() { apply(s.eng) }) {
		s.logger.Debug("server: loop closed, dropping inbound message", "type", typ)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r.Context())
	if err != nil {
		http.Error(w, "engine unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Debug("server: write state failed", "err", err)
	}
}

var _ render.Sink = (*Server)(nil)
