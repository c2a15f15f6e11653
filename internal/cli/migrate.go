package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lan-quiz-service/internal/config"
	"lan-quiz-service/internal/infra/postgres"
	infraredis "lan-quiz-service/internal/infra/redis"
	"lan-quiz-service/internal/infra/yamlquiz"
)

// NewMigrateCmd applies database migrations and optionally seeds quizzes from YAML.
func NewMigrateCmd(opts *rootOptions) *cobra.Command {
	var seed string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runMigrations(cmd.Context(), cfg, seed)
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "YAML quiz file to upsert after migrating")
	return cmd
}

func runMigrations(ctx context.Context, cfg config.Config, seed string) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()

	group, err := postgres.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info().Msg("database is up to date")
	} else {
		log.Info().Str("group", group.String()).Msg("migrations applied")
	}

	if seed == "" {
		return nil
	}
	quizzes, err := yamlquiz.ReadFile(seed)
	if err != nil {
		return err
	}
	pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := postgres.NewQuizLoader(pool)

	// a running server may hold the old version of a seeded quiz in Redis
	var cache *infraredis.QuizRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cache = infraredis.NewQuizRepository(client, loader, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
	}

	for _, quiz := range quizzes {
		if err := loader.SaveQuiz(ctx, quiz); err != nil {
			return fmt.Errorf("seed quiz %s: %w", quiz.ID, err)
		}
		if cache != nil {
			if err := cache.Invalidate(ctx, quiz.ID); err != nil {
				log.Warn().Err(err).Str("quiz", quiz.ID).Msg("cached quiz not invalidated")
			}
		}
		log.Info().Str("quiz", quiz.ID).Str("title", quiz.Title).Msg("quiz seeded")
	}
	return nil
}
