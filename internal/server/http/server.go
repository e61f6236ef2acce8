package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/stateflo/internal/runtime"
	"github.com/rzbill/stateflo/internal/server/http/controllers"
	logpkg "github.com/rzbill/stateflo/pkg/log"
)

// Server exposes a runtime over JSON endpoints.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New builds a server for rt. metrics serves /metrics when non-nil.
func New(rt *runtime.Runtime, logger logpkg.Logger, metrics http.Handler) *Server {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	logger = logger.WithComponent("http")
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt, logger, metrics).RegisterAllRoutes(mux)
	return &Server{
		rt:     rt,
		logger: logger,
		srv:    &http.Server{Handler: accessLog(logger, cors(mux)), ReadHeaderTimeout: 10 * time.Second},
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Addr returns the listening address once ListenAndServe has bound it.
func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops accepting connections.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(logger logpkg.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request",
			logpkg.Str("method", r.Method),
			logpkg.Str("path", r.URL.Path),
			logpkg.Duration("elapsed", time.Since(start)))
	})
}
