package main

import (
	"fmt"
	"log/slog"

	"github.com/mydudu/screening-api/internal/config"
	"github.com/mydudu/screening-api/internal/knowledge"
	"github.com/mydudu/screening-api/internal/platform/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	kbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "screen",
		Short:        "Pediatric growth and symptom screening",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.kbPath, "kb", "", "knowledge base YAML file (defaults to the embedded one)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newGrowthCmd(opts),
		newSessionCmd(opts),
		newKBCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

// load reads the configuration with this command's flags layered on top and
// sets up logging to stderr. Flags the command does not define are ignored.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	flags := cmd.Flags()
	cfg, err := config.LoadUnvalidated(map[string]*pflag.Flag{
		"screening.knowledge_base_path": flags.Lookup("kb"),
		"privacy.child_id_key":          flags.Lookup("child-key"),
		"auth.jwt_secret":               flags.Lookup("jwt-secret"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Server.LogLevel = o.logLevel

	log, err := logger.SetupWithWriter(cfg.Server, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}

// loadBundle loads the configured knowledge base, or the embedded one.
func loadBundle(cfg *config.Config) (*knowledge.Bundle, error) {
	bundle, err := knowledge.Load(cfg.Screening.KnowledgeBasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	return bundle, nil
}
