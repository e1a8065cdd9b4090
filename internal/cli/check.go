package cli

import (
	"fmt"

	"github.com/soyeahso/parley/internal/domain"
	"github.com/soyeahso/parley/internal/guard"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var asOutput bool

	cmd := &cobra.Command{
		Use:   "check [text]...",
		Short: "Run the guardrail rules against text and print the verdict",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			engine := guard.NewEngine(cfg.Guardrails, log)

			for _, text := range args {
				var ok bool
				var violations []domain.Violation
				var sanitized string

				if asOutput {
					verdict := engine.ValidateOutput(text)
					ok, violations, sanitized = verdict.Safe, verdict.Violations, verdict.Sanitized
				} else {
					verdict := engine.ValidateInput(text)
					ok, violations, sanitized = verdict.Valid, verdict.Violations, verdict.Sanitized
				}

				if ok {
					fmt.Println("PASS")
				} else {
					fmt.Println("BLOCKED")
				}
				for _, v := range violations {
					fmt.Printf("  [%s] %s: %s\n", v.Severity, v.Rule, v.Message)
				}
				if sanitized != text {
					fmt.Printf("  sanitized: %s\n", sanitized)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asOutput, "output", false, "validate as generated output instead of user input")

	return cmd
}
