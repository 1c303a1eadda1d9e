package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/config"
	"github.com/mydudu/screening-api/internal/platform/sqlite"
	"github.com/mydudu/screening-api/internal/service/screening"
	"github.com/spf13/cobra"
)

type sessionOptions struct {
	dbPath   string
	operator string
	childRef string
	resume   string
	childKey string
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "screen.db"
	}
	return filepath.Join(home, ".screen", "screen.db")
}

func newSessionCmd(global *globalOptions) *cobra.Command {
	opts := &sessionOptions{}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run an interactive screening stored in a local database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openSessionEnv(cmd, global, opts)
			if err != nil {
				return err
			}
			defer env.close()

			ctx := cmd.Context()
			var sessionID uuid.UUID
			if opts.resume != "" {
				if sessionID, err = uuid.Parse(opts.resume); err != nil {
					return fmt.Errorf("invalid session id %q: %w", opts.resume, err)
				}
			} else {
				if opts.childRef == "" {
					return fmt.Errorf("--child is required to start a screening")
				}
				view, err := env.service.StartSession(ctx, env.operator, opts.childRef)
				if err != nil {
					return err
				}
				sessionID = view.Record.ID
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:            color.New(color.FgCyan).Sprint("screen> "),
				InterruptPrompt:   "^C",
				EOFPrompt:         "quit",
				HistorySearchFold: true,
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer func() { _ = rl.Close() }()

			repl := &sessionREPL{
				service:   env.service,
				operator:  env.operator,
				sessionID: sessionID,
				in:        rl,
				out:       cmd.OutOrStdout(),
			}
			return repl.Run(ctx)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.dbPath, "db", defaultDBPath(), "SQLite database file")
	f.StringVar(&opts.operator, "operator", "", "operator UUID (defaults to one derived from the host name)")
	f.StringVar(&opts.childKey, "child-key", "", "key used to pseudonymize child references")
	cmd.Flags().StringVar(&opts.childRef, "child", "", "clinic identifier of the child to screen")
	cmd.Flags().StringVar(&opts.resume, "resume", "", "resume the screening with this id")
	cmd.MarkFlagsMutuallyExclusive("child", "resume")

	cmd.AddCommand(newSessionListCmd(global, opts))
	return cmd
}

func newSessionListCmd(global *globalOptions, opts *sessionOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the screenings stored in the local database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openSessionEnv(cmd, global, opts)
			if err != nil {
				return err
			}
			defer env.close()

			sessions, err := env.service.ListSessions(cmd.Context(), env.operator, limit, 0)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				_, err = fmt.Fprintln(out, "no screenings")
				return err
			}
			for _, s := range sessions {
				status := string(s.Phase)
				if s.OutcomeStatus != nil {
					status = string(*s.OutcomeStatus)
				}
				fmt.Fprintf(out, "%s  %-14s %s\n", s.ID, status, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", screening.DefaultListLimit, "maximum number of screenings to show")
	return cmd
}

// sessionEnv is a screening service over a local SQLite database.
type sessionEnv struct {
	db       *sql.DB
	service  screening.Service
	operator uuid.UUID
	logger   *slog.Logger
}

func (e *sessionEnv) close() {
	if err := e.db.Close(); err != nil {
		e.logger.Error("failed to close database", "error", err)
	}
}

func openSessionEnv(cmd *cobra.Command, global *globalOptions, opts *sessionOptions) (*sessionEnv, error) {
	cfg, log, err := global.load(cmd)
	if err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg.Privacy); err != nil {
		return nil, fmt.Errorf("a child id key of at least 16 characters is required (--child-key or %s_PRIVACY_CHILD_ID_KEY): %w",
			config.EnvPrefix, err)
	}

	operator, err := resolveOperator(opts.operator)
	if err != nil {
		return nil, err
	}

	bundle, err := loadBundle(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cmd.Context(), opts.dbPath)
	if err != nil {
		return nil, err
	}

	svc, err := screening.NewService(
		db,
		sqlite.NewSessionStore(db),
		sqlite.NewArticleStore(db),
		bundle,
		cfg.Screening,
		cfg.Privacy,
		log,
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sessionEnv{db: db, service: svc, operator: operator, logger: log}, nil
}

// resolveOperator parses the operator flag. Without one, the operator is
// derived from the host name so screenings can be resumed on the same device.
func resolveOperator(flag string) (uuid.UUID, error) {
	if flag != "" {
		id, err := uuid.Parse(flag)
		if err != nil || id == uuid.Nil {
			return uuid.Nil, fmt.Errorf("invalid operator id %q", flag)
		}
		return id, nil
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("screen."+host)), nil
}
