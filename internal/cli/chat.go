package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soyeahso/taskdeck/internal/agent"
	"github.com/soyeahso/taskdeck/internal/config"
	"github.com/soyeahso/taskdeck/internal/store"
	"github.com/soyeahso/taskdeck/internal/tools"
)

func newChatCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the task assistant from the terminal",
		Long:  "Opens a local chat session against the task database, without going through the API server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
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

			fmt.Println("Taskdeck assistant. Type a message, or \"exit\" to quit.")

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var conversationID int64
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}

				result, err := chatAgent.Chat(ctx, owner, conversationID, line, func(event, tool string) {
					if event == "tool_start" {
						fmt.Printf("  [%s]\n", tool)
					}
				})
				if err != nil {
					fmt.Printf("error: %v\n", err)
					continue
				}
				conversationID = result.ConversationID
				fmt.Println(result.Response)
			}
		},
	}

	cmd.Flags().StringVar(&owner, "as", "local", "owner ID to chat as")

	return cmd
}
