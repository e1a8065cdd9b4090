package cli

import (
	"fmt"
	"time"

	"github.com/soyeahso/parley/internal/store"
	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage conversation sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsStatsCmd())
	cmd.AddCommand(newSessionsHistoryCmd())
	cmd.AddCommand(newSessionsClearCmd())

	return cmd
}

func openSessions() *store.SessionStore {
	cfg := loadConfig()
	return store.Open(cfg.Store, cfg.Session, log)
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all active sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := openSessions()
			users := sessions.ActiveSessions()
			if len(users) == 0 {
				fmt.Println("no active sessions")
				return nil
			}
			for _, u := range users {
				line := u
				if ttl, ok := sessions.RemainingTTL(u); ok && ttl > 0 {
					line = fmt.Sprintf("%s (ttl %s)", u, ttl.Round(time.Second))
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newSessionsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show session store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := openSessions()
			stats := sessions.GetStats()
			fmt.Printf("Backend:  %s\n", stats.Backend)
			fmt.Printf("Sessions: %d\n", stats.TotalSessions)
			for k, v := range stats.Details {
				fmt.Printf("%-9s %s\n", k+":", v)
			}
			return nil
		},
	}
}

func newSessionsHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <user>",
		Short: "Print a user's conversation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := openSessions()
			msgs := sessions.History(args[0])
			if len(msgs) == 0 {
				fmt.Println("no history")
				return nil
			}
			for _, m := range msgs {
				fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04:05"), m.Role, m.Content)
			}
			return nil
		},
	}
}

func newSessionsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <user>",
		Short: "Delete a user's session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := openSessions()
			if !sessions.ClearSession(args[0]) {
				return fmt.Errorf("failed to clear session for %q", args[0])
			}
			fmt.Printf("cleared session for %s\n", args[0])
			return nil
		},
	}
}
