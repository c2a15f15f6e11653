package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lan-quiz-service/internal/infra/sqlite"
	"lan-quiz-service/internal/infra/yamlquiz"
)

// NewImportCmd copies quizzes from a YAML file into the SQLite store.
func NewImportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <quizzes.yaml>",
		Short: "Import quizzes into the SQLite store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.SQLite.Path == "" {
				return fmt.Errorf("sqlite path not configured")
			}
			return importQuizzes(cmd.Context(), cfg.SQLite.Path, args[0])
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List quizzes in the SQLite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.SQLite.Path == "" {
				return fmt.Errorf("sqlite path not configured")
			}
			return listQuizzes(cmd.Context(), cfg.SQLite.Path)
		},
	})
	return cmd
}

func importQuizzes(ctx context.Context, dbPath, file string) error {
	quizzes, err := yamlquiz.ReadFile(file)
	if err != nil {
		return err
	}
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, quiz := range quizzes {
		saved, err := store.SaveQuiz(ctx, quiz.Title, quiz.Questions)
		if err != nil {
			return fmt.Errorf("import %q: %w", quiz.Title, err)
		}
		log.Info().Str("quiz", saved.ID).Str("title", saved.Title).Int("questions", len(saved.Questions)).Msg("quiz imported")
	}
	return nil
}

func listQuizzes(ctx context.Context, dbPath string) error {
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.ListQuizzes(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCREATED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Title, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
