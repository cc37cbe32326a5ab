package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"VoucherVisionClient/internal/adapter/ui"
	"VoucherVisionClient/internal/service/vouchervision"
)

// Ensure interface compliance
var _ ui.Server = (*Server)(nil)

// Максимальный размер загружаемого через браузер файла.
const maxUploadBytes = 64 << 20

// Config настройки демо-сервера.
type Config struct {
	BindAddr       string
	AllowedOrigins []string
	Defaults       vouchervision.Options // движки/промпт, если браузер их не прислал
	APIKey         string                // ключ по умолчанию, если браузер его не прислал (опционально)
}

// Server — браузерное демо: страница с формой, HTTP API и websocket с прогрессом.
type Server struct {
	cfg      Config
	handlers ui.Handlers
	srv      *http.Server
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
	running  atomic.Bool
	addr     atomic.Value
}

func New(cfg Config, handlers ui.Handlers, logger *zap.SugaredLogger) *Server {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:8080"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{cfg: cfg, handlers: handlers, logger: logger}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.addr.Store(cfg.BindAddr)

	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler возвращает роутер; удобно для httptest.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "X-API-Key"},
		MaxAge:         300,
	}))

	mux.Get("/", s.handleIndex)
	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/process", s.wrap(s.handleProcess))
		rt.Post("/process-url", s.wrap(s.handleProcessURL))
	})
	mux.Get("/ws", s.handleWS)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.addr.Store(ln.Addr().String())

	go func() {
		s.logger.Infow("Web demo listening", "addr", s.Addr())
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Web demo stopped with error", "error", err)
		} else {
			s.logger.Infow("Web demo stopped")
		}
	}()

	// Watch for context cancellation to stop the server
	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("web demo shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

// Addr — фактический адрес после Start (с реальным портом при ":0").
func (s *Server) Addr() string { return s.addr.Load().(string) }

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}
