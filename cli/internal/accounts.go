package cli

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/spf13/cobra"
)

// formatMoney renders a money value for table output, "-" when absent
func formatMoney(m *money.Money) string {
	if m == nil {
		return "-"
	}
	return m.Display()
}

func newAccountsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage investment accounts",
	}

	cmd.AddCommand(newAccountsListCommand())

	return cmd
}

func newAccountsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your investment accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			accounts, err := cliCtx.API.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if len(accounts) == 0 {
				fmt.Println("No accounts found")
				return nil
			}

			var md strings.Builder
			md.WriteString("| ID | Name | Currency | Balance |\n")
			md.WriteString("|----|------|----------|--------:|\n")
			for _, acc := range accounts {
				fmt.Fprintf(&md, "| %s | %s | %s | %s |\n",
					acc.ID, acc.Name, acc.Currency, formatMoney(acc.Balance))
			}

			return printMarkdown(md.String())
		},
	}
}
