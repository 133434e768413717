package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the portfolio summary across all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			summary, err := cliCtx.API.Summary(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch summary: %w", err)
			}

			var md strings.Builder
			md.WriteString("# Portfolio Summary\n\n")
			fmt.Fprintf(&md, "| Total Value | Day Change | Accounts | Positions |\n")
			fmt.Fprintf(&md, "|------------:|-----------:|---------:|----------:|\n")
			fmt.Fprintf(&md, "| %s | %s | %d | %d |\n",
				formatMoney(summary.TotalValue), formatMoney(summary.DayChange),
				summary.Accounts, summary.Positions)
			if !summary.AsOf.IsZero() {
				fmt.Fprintf(&md, "\nAs of %s\n", summary.AsOf.Local().Format("2006-01-02 15:04"))
			}

			return printMarkdown(md.String())
		},
	}
}
