// Package web serves loaded models and their evaluated poses over HTTP and websockets.
package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/loader"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
)

// Server exposes the models of a Loader through JSON endpoints and pose streams.
type Server struct {
	loader   loader.Loader
	animator animator.Animator
	logger   *slog.Logger
	access   io.Writer

	streamFPS    int
	maxStreamFPS int
	upgrader     websocket.Upgrader
}

// ServerOption is a functional option for configuring a Server via NewServer.
type ServerOption func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAccessLog sets where request logs in Apache common format are written. Defaults to stdout.
func WithAccessLog(w io.Writer) ServerOption {
	return func(s *Server) {
		s.access = w
	}
}

// WithStreamFPS sets the default and maximum websocket frame rates.
func WithStreamFPS(fps, maxFPS int) ServerOption {
	return func(s *Server) {
		if fps > 0 {
			s.streamFPS = fps
		}
		if maxFPS > 0 {
			s.maxStreamFPS = maxFPS
		}
	}
}

// NewServer creates a Server reading models from l and evaluating them with a.
//
// Parameters:
//   - l: the loader whose cached models are served
//   - a: the animator used for pose evaluation
//   - options: functional options to configure the server
//
// Returns:
//   - *Server: the server
func NewServer(l loader.Loader, a animator.Animator, options ...ServerOption) *Server {
	s := &Server{
		loader:       l,
		animator:     a,
		logger:       slog.Default(),
		access:       os.Stdout,
		streamFPS:    30,
		maxStreamFPS: 120,
	}
	for _, opt := range options {
		opt(s)
	}
	s.streamFPS = min(s.streamFPS, s.maxStreamFPS)
	return s
}

// Handler returns the routed handler wrapped with panic recovery and access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/json/models", s.handleModels).Methods(http.MethodGet)
	r.HandleFunc("/json/models/{model}", s.handleModel).Methods(http.MethodGet)
	r.HandleFunc("/json/models/{model}/{anim}/pose", s.handlePose).Methods(http.MethodGet)
	r.HandleFunc("/ws/models/{model}/{anim}", s.handleStream)

	var h http.Handler = r
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	h = handlers.LoggingHandler(s.access, h)
	return h
}

// ListenAndServe serves Handler on addr until ctx is cancelled, then shuts down gracefully.
//
// Parameters:
//   - ctx: controls the server lifetime
//   - addr: the listen address
//
// Returns:
//   - error: the listen error, or nil after a clean shutdown
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "server shutdown")
		}
		return nil
	}
}

// findModel looks a model up by name. When several cached models share a name, the one with
// the lowest cache key wins.
func (s *Server) findModel(name string) model.Model {
	models := s.loader.Models()
	keys := make([]string, 0, len(models))
	for k := range models {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if models[k].Name() == name {
			return models[k]
		}
	}
	return nil
}

// findAnimation resolves the {model} and {anim} route variables.
func (s *Server) findAnimation(r *http.Request) (*model.Animation, int, error) {
	vars := mux.Vars(r)
	m := s.findModel(vars["model"])
	if m == nil {
		return nil, http.StatusNotFound, errors.Errorf("model %q not found", vars["model"])
	}
	anim := m.Animation(vars["anim"])
	if anim == nil {
		return nil, http.StatusNotFound, errors.Errorf("animation %q not found in model %q", vars["anim"], vars["model"])
	}
	return anim, http.StatusOK, nil
}

// effectiveSpeed returns the ticks per second an animation plays at.
func (s *Server) effectiveSpeed(anim *model.Animation) float32 {
	if anim.Speed > 0 {
		return anim.Speed
	}
	return s.animator.DefaultSpeed()
}
