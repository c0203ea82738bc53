package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/UkralStul/mountainmerge-comments/internal/auth"
	"github.com/UkralStul/mountainmerge-comments/internal/dataloader"
	"github.com/UkralStul/mountainmerge-comments/internal/events"
	"github.com/UkralStul/mountainmerge-comments/internal/logging"
	"github.com/UkralStul/mountainmerge-comments/internal/storage"
)

// Options - настраиваемые параметры сервера.
type Options struct {
	// RPS и Burst ограничивают изменяющие запросы одного пользователя.
	RPS   float64
	Burst int
	// PingInterval - период ping-кадров в потоке изменений.
	PingInterval time.Duration
}

// Server - REST-бэкенд комментариев и голосов.
type Server struct {
	store    storage.Storage
	tokens   *auth.TokenService
	broker   *events.Broker
	log      zerolog.Logger
	validate *validator.Validate
	limiter  *userLimiter
	upgrader websocket.Upgrader
	ping     time.Duration
}

// NewServer собирает сервер из зависимостей.
func NewServer(store storage.Storage, tokens *auth.TokenService, broker *events.Broker, logger zerolog.Logger, opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return &Server{
		store:    store,
		tokens:   tokens,
		broker:   broker,
		log:      logger,
		validate: validator.New(),
		limiter:  newUserLimiter(opts.RPS, opts.Burst),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ping: opts.PingInterval,
	}
}

// Routes возвращает роутер со всеми эндпоинтами.
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(logging.RequestLogger(s.log))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	unauthorized := func(w http.ResponseWriter, r *http.Request, msg string) {
		writeError(w, http.StatusUnauthorized, msg)
	}

	router.With(auth.StreamMiddleware(s.tokens, unauthorized)).
		Get("/comments/stream", s.streamComments)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.tokens, unauthorized))
		r.Use(dataloader.Middleware(s.store))

		r.Get("/comments", s.listComments)
		r.Get("/votes/{type}/{id}", s.getVotes)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/comments", s.createComment)
			r.Delete("/comments/{id}", s.deleteComment)
			r.Post("/votes", s.toggleVote)
		})
	})

	return router
}

// ListenAndServe запускает HTTP-сервер и останавливает его при отмене ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
