package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the store handles opened for the lifetime of the server.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
	db    *bun.DB
}

func (b backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, stores, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	transport.NewHandler(service, log, cfg.Server.PublicURL).Register(router)
	router.HandleFunc("/ws/host", transport.NewWSHandler(service, log).ServeWS).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.Logging(log, router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildService picks the stores from config: Redis for live sessions when an
// address is set, else Postgres when a URL is set, else process memory.
// Quizzes come from Postgres or the catalog file, cached in Redis or memory.
func buildService(ctx context.Context, cfg config.Config, log *logrus.Logger) (*app.GameService, backends, error) {
	var stores backends

	var catalog memory.Catalog
	if cfg.Quiz.Catalog != "" {
		c, err := memory.LoadCatalog(cfg.Quiz.Catalog)
		if err != nil {
			return nil, stores, err
		}
		catalog = c
	}

	if cfg.Redis.Addr != "" {
		stores.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := stores.redis.Ping(ctx).Err(); err != nil {
			stores.Close()
			return nil, backends{}, fmt.Errorf("connect redis: %w", err)
		}
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			stores.Close()
			return nil, backends{}, fmt.Errorf("connect postgres: %w", err)
		}
		stores.pool = pool
		stores.db = postgres.OpenDB(cfg.Postgres.URL)
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(catalog.QuizMap())
	if stores.pool != nil {
		loader = postgres.NewQuizLoader(stores.pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizRepository
	if stores.redis != nil {
		quizzes = redisstore.NewQuizRepository(stores.redis, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	var sessions app.SessionRepository
	switch {
	case stores.redis != nil:
		sessions = redisstore.NewSessionStore(stores.redis, config.TTLDuration(cfg.Redis.TTL, 12*time.Hour))
	case stores.db != nil:
		sessions = postgres.NewSessionStore(stores.db)
	default:
		sessions = memory.NewSessionStore()
	}

	var events app.EventRepository = memory.NewEventStore(catalog.Events...)
	if stores.db != nil {
		events = postgres.NewEventStore(stores.db)
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithPinAllocator(app.NewPinAllocator(cfg.Game.PinAttempts)),
	}
	if stores.redis != nil {
		opts = append(opts, app.WithStatusCache(redisstore.NewStatusCache(stores.redis, config.TTLDuration(cfg.Status.CacheTTL, 2*time.Second))))
	}

	log.WithFields(logrus.Fields{
		"sessions": fmt.Sprintf("%T", sessions),
		"quizzes":  fmt.Sprintf("%T", quizzes),
		"events":   fmt.Sprintf("%T", events),
	}).Info("stores configured")

	return app.NewGameService(sessions, quizzes, events, opts...), stores, nil
}
