package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newHoldingsCommand() *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "holdings",
		Short: "Show open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			holdings, err := cliCtx.API.ListHoldings(cmd.Context(), accountID)
			if err != nil {
				return fmt.Errorf("failed to list holdings: %w", err)
			}

			if len(holdings) == 0 {
				fmt.Println("No holdings found")
				return nil
			}

			var md strings.Builder
			md.WriteString("| Symbol | Account | Quantity | Unit Price | Market Value |\n")
			md.WriteString("|--------|---------|---------:|-----------:|-------------:|\n")
			for _, h := range holdings {
				fmt.Fprintf(&md, "| %s | %s | %s | %s | %s |\n",
					h.Symbol, h.AccountID, h.Quantity.String(),
					formatMoney(h.UnitPrice), formatMoney(h.MarketValue))
			}

			return printMarkdown(md.String())
		},
	}

	cmd.Flags().StringVarP(&accountID, "account", "a", "", "Limit to one account")

	return cmd
}
