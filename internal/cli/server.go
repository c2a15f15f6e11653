package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	"lan-quiz-service/internal/app"
	"lan-quiz-service/internal/config"
	"lan-quiz-service/internal/infra/memory"
	"lan-quiz-service/internal/infra/natshost"
	"lan-quiz-service/internal/infra/postgres"
	infraredis "lan-quiz-service/internal/infra/redis"
	"lan-quiz-service/internal/infra/sqlite"
	"lan-quiz-service/internal/infra/yamlquiz"
	"lan-quiz-service/internal/lan"
	transport "lan-quiz-service/internal/transport/http"
)

const (
	shutdownTimeout   = 5 * time.Second
	saveResultTimeout = 5 * time.Second
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.String("bind", "", "address to bind to (env: QUIZ_BIND)")
	fs.IntP("port", "p", 0, "port to listen on (env: QUIZ_PORT)")
	fs.String("public-url", "", "base URL put in join links instead of the LAN address (env: QUIZ_PUBLIC_URL)")
	fs.String("host-key", "", "key required by host endpoints (env: QUIZ_HOST_KEY)")
	fs.String("redis-addr", "", "Redis address for the quiz cache (env: QUIZ_REDIS_ADDR)")
	fs.String("quiz-file", "", "YAML file with quizzes (env: QUIZ_QUIZ_FILE)")
	fs.String("quiz-id", "", "quiz to load on start (env: QUIZ_QUIZ_ID)")
	fs.String("nats-url", "", "mirror host events to NATS (env: QUIZ_NATS_URL)")
	fs.Int("countdown", 0, "countdown seconds before the first question (env: QUIZ_COUNTDOWN)")
	fs.Int("question-seconds", 0, "seconds per question (env: QUIZ_QUESTION_SECONDS)")
	return cmd
}

// stores holds the backends picked from config; close releases them.
type stores struct {
	loader  memory.QuizLoader
	quizzes app.QuizRepository
	results app.ResultStore
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	hub := app.NewHub()
	if cfg.NATS.URL != "" {
		nc, err := natshost.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer func() { _ = nc.Drain() }()
		hub.SwapHost(natshost.NewPublisher(nc, cfg.NATS.Subject))
		log.Info().Str("url", cfg.NATS.URL).Str("subject", cfg.NATS.Subject).Msg("mirroring host events to NATS")
	}

	engine := app.NewEngine(hub,
		app.WithGameConfig(gameConfig(cfg)),
		app.WithGameOverHook(app.SaveResultsAsync(st.results, saveResultTimeout)),
	)
	engine.Start()
	defer engine.Stop()

	service := app.NewQuizService(st.quizzes, engine, hub, app.WithResultStore(st.results))
	if cfg.Quiz.DefaultID != "" {
		if _, err := service.LoadQuiz(ctx, cfg.Quiz.DefaultID); err != nil {
			log.Warn().Err(err).Str("quiz", cfg.Quiz.DefaultID).Msg("default quiz not loaded")
		}
	}

	ip := lan.FirstIPv4(nil)
	baseURL := lan.BaseURL(cfg.Server.PublicURL, ip, cfg.Server.Port)
	server := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Bind, strconv.Itoa(cfg.Server.Port)),
		Handler: transport.NewRouter(service, transport.Options{
			HostKey: cfg.Server.HostKey,
			Version: version,
			BaseURL: func() string { return baseURL },
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("lan", baseURL).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStores picks the quiz source (Postgres, then SQLite, then a YAML file, then the
// built-in sample), the cache (Redis or memory) and the result archive.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	st := &stores{}
	var bunDB *bun.DB

	switch {
	case cfg.Postgres.URL != "":
		bunDB = postgres.OpenBun(cfg.Postgres.URL)
		st.closers = append(st.closers, func() { _ = bunDB.Close() })
		if _, err := postgres.Migrate(ctx, bunDB); err != nil {
			st.close()
			return nil, err
		}
		pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.loader = postgres.NewQuizLoader(pool)
		log.Info().Msg("quizzes from postgres")
	case cfg.SQLite.Path != "":
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = db.Close() })
		st.loader = db
		log.Info().Str("path", cfg.SQLite.Path).Msg("quizzes from sqlite")
	case cfg.Quiz.File != "":
		st.loader = yamlquiz.NewLoader(cfg.Quiz.File)
		log.Info().Str("path", cfg.Quiz.File).Msg("quizzes from file")
	default:
		st.loader = memory.NewStaticQuizLoader(memory.SampleQuizzes())
		log.Info().Msg("serving the built-in sample quiz")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis not reachable yet")
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		st.quizzes = infraredis.NewQuizRepository(redisClient, st.loader, quizTTL)
	} else {
		st.quizzes = memory.NewQuizRepository(st.loader, quizTTL)
	}

	switch {
	case bunDB != nil:
		st.results = postgres.NewResultStore(bunDB)
	case redisClient != nil:
		st.results = infraredis.NewResultStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	default:
		st.results = memory.NewResultStore()
	}
	return st, nil
}

func gameConfig(cfg config.Config) app.GameConfig {
	game := app.DefaultGameConfig()
	game.CountdownSeconds = cfg.Game.CountdownSeconds
	game.QuestionSeconds = cfg.Game.QuestionSeconds
	game.RevealDelay = config.TTLDuration(cfg.Game.RevealDelay, game.RevealDelay)
	game.LeaderboardDelay = config.TTLDuration(cfg.Game.LeaderboardDelay, game.LeaderboardDelay)
	return game
}
