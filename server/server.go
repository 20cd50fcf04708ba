// Package server exposes the recipe assistant over HTTP: a streaming chat
// endpoint plus one-shot image and audio generation endpoints.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chefkit/chat"
	"chefkit/core"
)

// ImageGenerator is the remote image backend the images endpoint fronts.
type ImageGenerator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// SpeechSynthesizer is the remote speech backend the audio endpoint fronts.
// An empty format requests the provider default (MP3).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, format string) ([]byte, error)
}

type Server struct {
	router *chi.Mux
	addr   string
	logger *core.Logger

	chat   *chat.Pipeline
	images ImageGenerator
	speech SpeechSynthesizer

	httpServer *http.Server
}

func NewServer(addr string, chatPipeline *chat.Pipeline, images ImageGenerator, speech SpeechSynthesizer, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		addr:   addr,
		logger: logger,
		chat:   chatPipeline,
		images: images,
		speech: speech,
	}

	router.Get("/health", s.handleHealth)
	router.Post("/api/chat", s.handleChat)
	router.Post("/api/images", s.handleImages)
	router.Post("/api/audio", s.handleAudio)

	return s
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.With(map[string]interface{}{"addr": s.addr}).Info("API server starting")
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.router}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
