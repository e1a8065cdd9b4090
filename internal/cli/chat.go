package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/soyeahso/parley/internal/answer"
	"github.com/soyeahso/parley/internal/chat"
	"github.com/soyeahso/parley/internal/guard"
	"github.com/soyeahso/parley/internal/store"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat through the guardrails pipeline with session persistence",
		Long: "Reads queries from stdin and runs them through the guardrails pipeline and " +
			"session-aware wrapper. Uses a built-in echo answerer; real deployments plug " +
			"their own answer engine into the library.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			if userID == "" {
				userID = uuid.New().String()
				fmt.Fprintf(cmd.ErrOrStderr(), "session user: %s\n", userID)
			}

			sessions := store.Open(cfg.Store, cfg.Session, log)
			engine := guard.NewEngine(cfg.Guardrails, log)
			pipeline := guard.NewPipeline(engine, echoAnswerer(), log)
			conv := chat.New(sessions, pipeline, cfg.Session.ContextMessages, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("> ")
			for scanner.Scan() {
				if ctx.Err() != nil {
					break
				}
				query := strings.TrimSpace(scanner.Text())
				if query == "/quit" {
					break
				}

				res, err := conv.Chat(ctx, userID, query)
				if err != nil {
					return err
				}

				fmt.Println(res.Response)
				if res.Blocked {
					for _, v := range res.Violations {
						fmt.Fprintf(cmd.ErrOrStderr(), "  [%s] %s: %s\n", v.Severity, v.Rule, v.Message)
					}
				}
				for _, w := range res.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "  warning [%s] %s: %s\n", w.Severity, w.Rule, w.Message)
				}
				fmt.Print("> ")
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "session user ID (default: random)")

	return cmd
}

// echoAnswerer is a stand-in answer engine for the CLI demo.
func echoAnswerer() answer.Answerer {
	return answer.Func(func(ctx context.Context, query string) (*answer.Result, error) {
		return &answer.Result{
			Query:    query,
			Response: "(no answer engine configured) you said: " + query,
		}, nil
	})
}
