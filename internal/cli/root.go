package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"lan-quiz-service/internal/config"
)

// version is set at build time with -ldflags "-X lan-quiz-service/internal/cli.version=...".
var version = "dev"

const defaultConfigPath = "config/config.yaml"

// Execute runs the CLI.
func Execute() error {
	// a missing .env is fine
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

type rootOptions struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	opts := &rootOptions{v: v}

	cmd := &cobra.Command{
		Use:           "quiz-service",
		Short:         "LAN quiz game server powered by Gorilla WebSocket",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			bindFlags(v, cmd.Flags())
			bindFlags(v, cmd.InheritedFlags())
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", defaultConfigPath, "path to YAML config (env: QUIZ_CONFIG)")
	pf.String("log-level", "", "trace, debug, info, warn or error (env: QUIZ_LOG_LEVEL)")
	pf.Bool("log-pretty", false, "human readable console logs (env: QUIZ_LOG_PRETTY)")
	pf.String("postgres-url", "", "Postgres DSN for quizzes and results (env: QUIZ_POSTGRES_URL)")
	pf.String("sqlite-path", "", "SQLite quiz database (env: QUIZ_SQLITE_PATH)")

	cmd.AddCommand(NewStartCmd(opts))
	cmd.AddCommand(NewMigrateCmd(opts))
	cmd.AddCommand(NewImportCmd(opts))
	cmd.SetVersionTemplate("quiz-service {{.Version}}\n")
	return cmd
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
	})
}

// loadConfig reads the config file, applies flag and env overrides, validates the result
// and configures logging.
func (o *rootOptions) loadConfig() (config.Config, error) {
	path := o.v.GetString("config")
	var (
		cfg config.Config
		err error
	)
	if o.v.IsSet("config") && path != defaultConfigPath {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOptional(path)
	}
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	o.applyOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	setupLogging(cfg)
	return cfg, nil
}

func (o *rootOptions) applyOverrides(cfg *config.Config) {
	v := o.v
	texts := map[string]*string{
		"bind":         &cfg.Server.Bind,
		"public-url":   &cfg.Server.PublicURL,
		"host-key":     &cfg.Server.HostKey,
		"redis-addr":   &cfg.Redis.Addr,
		"postgres-url": &cfg.Postgres.URL,
		"sqlite-path":  &cfg.SQLite.Path,
		"quiz-file":    &cfg.Quiz.File,
		"quiz-id":      &cfg.Quiz.DefaultID,
		"nats-url":     &cfg.NATS.URL,
		"log-level":    &cfg.Log.Level,
	}
	for key, dst := range texts {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	ints := map[string]*int{
		"port":             &cfg.Server.Port,
		"countdown":        &cfg.Game.CountdownSeconds,
		"question-seconds": &cfg.Game.QuestionSeconds,
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	if v.IsSet("log-pretty") {
		cfg.Log.Pretty = v.GetBool("log-pretty")
	}
}

func setupLogging(cfg config.Config) {
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
