package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/taskdeck/internal/agent"
	"github.com/soyeahso/taskdeck/internal/config"
	"github.com/soyeahso/taskdeck/internal/llm"
	"github.com/soyeahso/taskdeck/internal/logging"
	"github.com/soyeahso/taskdeck/internal/server"
	"github.com/soyeahso/taskdeck/internal/store"
	"github.com/soyeahso/taskdeck/internal/tools"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Taskdeck API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			log = logging.NewWithStyle(nil, cfg.Logging.Level, cfg.Logging.ConsoleStyle)
			if logLevel != "" {
				log = logging.NewWithStyle(nil, logLevel, cfg.Logging.ConsoleStyle)
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = filepath.Join(paths.Data, "taskdeck.db")
			}
			db, err := store.Open(dbPath, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			registry := tools.NewRegistry()
			if err := tools.RegisterTaskTools(registry, store.NewTaskStore(db)); err != nil {
				return fmt.Errorf("registering tools: %w", err)
			}

			chatAgent := agent.New(
				agent.Config{
					Model:        cfg.Provider.Model,
					HistoryLimit: cfg.Chat.HistoryLimit,
				},
				buildProviderClient(cfg),
				registry,
				store.NewConversationStore(db),
				log,
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg, db, registry, chatAgent, log)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}

// buildProviderClient returns the completion client, or nil when no API key
// is configured. A nil client means the chat agent runs on the keyword
// router alone.
func buildProviderClient(cfg config.Config) llm.Client {
	if cfg.Provider.APIKey == "" {
		log.Warn().Msg("no provider API key configured, chat runs in keyword fallback mode")
		return nil
	}
	return llm.NewOpenAIClient(
		cfg.Provider.APIKey,
		cfg.Provider.Model,
		cfg.Provider.BaseURL,
		time.Duration(cfg.Provider.TimeoutSeconds)*time.Second,
	)
}
