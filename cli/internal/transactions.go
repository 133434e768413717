package cli

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline-go/internal/api"
)

func newTransactionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Manage transactions",
	}

	cmd.AddCommand(newTransactionsListCommand())
	cmd.AddCommand(newTransactionsAddCommand())
	cmd.AddCommand(newTransactionsRemoveCommand())

	return cmd
}

func newTransactionsListCommand() *cobra.Command {
	var (
		accountID string
		txType    string
		limit     int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			transactions, err := cliCtx.API.ListTransactions(cmd.Context(), api.TransactionFilter{
				AccountID: accountID,
				Type:      txType,
				Limit:     limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if len(transactions) == 0 {
				fmt.Println("No transactions found")
				return nil
			}

			var md strings.Builder
			md.WriteString("| Date | Type | Symbol | Quantity | Amount | Note |\n")
			md.WriteString("|------|------|--------|---------:|-------:|------|\n")
			for _, tx := range transactions {
				symbol := tx.Symbol
				if symbol == "" {
					symbol = "-"
				}
				fmt.Fprintf(&md, "| %s | %s | %s | %s | %s | %s |\n",
					tx.ExecutedAt.Local().Format("2006-01-02"),
					tx.Type, symbol, tx.Quantity.String(),
					formatMoney(tx.Amount), tx.Note)
			}

			return printMarkdown(md.String())
		},
	}

	cmd.Flags().StringVarP(&accountID, "account", "a", "", "Limit to one account")
	cmd.Flags().StringVarP(&txType, "type", "t", "", "Limit to one type (buy, sell, dividend, deposit, withdraw)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of transactions to return")

	return cmd
}

func newTransactionsAddCommand() *cobra.Command {
	var (
		accountID string
		txType    string
		symbol    string
		quantity  string
		amount    string
		currency  string
		note      string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new transaction",
		Long: `Record a new transaction on an account.

Examples:
  # Buy 10.5 shares
  ledgerline tx add --account acc_1 --type buy --symbol VTI --quantity 10.5 --amount 2521.26

  # Deposit cash
  ledgerline tx add --account acc_1 --type deposit --amount 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			params := api.CreateTransactionParams{
				AccountID: accountID,
				Type:      txType,
				Symbol:    symbol,
				Note:      note,
			}

			if quantity != "" {
				qty, err := decimal.NewFromString(quantity)
				if err != nil {
					return fmt.Errorf("invalid quantity %q: %w", quantity, err)
				}
				params.Quantity = qty
			}

			if amount != "" {
				m, err := parseMoney(amount, currency)
				if err != nil {
					return err
				}
				params.Amount = m
			}

			tx, err := cliCtx.API.CreateTransaction(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to record transaction: %w", err)
			}

			fmt.Printf("✓ Recorded %s transaction %s\n", tx.Type, tx.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&accountID, "account", "a", "", "Account ID (required)")
	cmd.Flags().StringVarP(&txType, "type", "t", "", "Transaction type (required)")
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Instrument symbol (for buy/sell/dividend)")
	cmd.Flags().StringVarP(&quantity, "quantity", "q", "", "Share quantity, decimal")
	cmd.Flags().StringVarP(&amount, "amount", "m", "", "Amount in major units, e.g. 2521.26")
	cmd.Flags().StringVarP(&currency, "currency", "c", "USD", "Amount currency code")
	cmd.Flags().StringVar(&note, "note", "", "Free-form note")
	cmd.MarkFlagRequired("account")
	cmd.MarkFlagRequired("type")

	return cmd
}

func newTransactionsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm TRANSACTION_ID",
		Aliases: []string{"delete"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			if err := cliCtx.API.DeleteTransaction(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete transaction: %w", err)
			}

			fmt.Printf("✓ Deleted transaction %s\n", args[0])
			return nil
		},
	}
}

// parseMoney converts a decimal major-unit amount ("2521.26") and a currency
// code into a money value in that currency's minor units.
func parseMoney(amount, code string) (*money.Money, error) {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return nil, fmt.Errorf("unknown currency %q", code)
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	units := dec.Shift(int32(cur.Fraction))
	if !units.IsInteger() {
		return nil, fmt.Errorf("amount %q has more precision than %s allows", amount, cur.Code)
	}

	return money.New(units.IntPart(), cur.Code), nil
}
