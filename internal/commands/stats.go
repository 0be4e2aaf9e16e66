package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/id"
)

func newStatsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show transaction counts per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			stats, err := p.svc.Statistics(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "Transactions: %d\n", stats.TotalCount)
			if stats.DateRange != nil {
				printf(out, "Date range:   %s to %s\n",
					stats.DateRange.From.Format(id.DateFormat), stats.DateRange.To.Format(id.DateFormat))
			}
			if len(stats.CategoryCounts) == 0 {
				return nil
			}
			printf(out, "\n")
			tw := newTable(out)
			fmt.Fprintln(tw, "CATEGORY\tCOUNT")
			for _, c := range stats.CategoryCounts {
				fmt.Fprintf(tw, "%s\t%d\n", c.Category, c.Count)
			}
			return tw.Flush()
		},
	}
}

func newSummaryCommand(g *globalFlags) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expenses, savings and balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateMonth(month); err != nil {
				return err
			}
			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			sum, err := p.svc.Summary(cmd.Context(), month)
			if err != nil {
				return err
			}

			cur := p.cfg.Reports.Currency
			out := cmd.OutOrStdout()
			period := month
			if period == "" {
				period = "all months"
			}
			printHeading(out, "Summary (%s)", period)

			s := sum.Summary
			tw := newTable(out)
			fmt.Fprintf(tw, "Income\t%s\t(%d)\n", money(s.Income, cur), s.CreditCount)
			fmt.Fprintf(tw, "Expenses\t%s\t(%d)\n", money(s.Expenses, cur), s.ExpenseCount)
			fmt.Fprintf(tw, "Savings\t%s\t(%d)\n", money(s.Savings, cur), s.SavingsCount)
			fmt.Fprintf(tw, "Balance\t%s\t\n", signedMoney(s.Balance, cur))
			if err := tw.Flush(); err != nil {
				return err
			}

			if len(sum.Breakdown) > 0 {
				printf(out, "\n")
				printHeading(out, "Expenses by category")
				tw = newTable(out)
				for _, b := range sum.Breakdown {
					fmt.Fprintf(tw, "%s\t%s\t(%d)\n", b.Category, money(b.Total, cur), b.Count)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			if len(sum.MonthlySavings) > 0 {
				printf(out, "\n")
				printHeading(out, "Savings by month")
				tw = newTable(out)
				for _, m := range sum.MonthlySavings {
					fmt.Fprintf(tw, "%s\t%s\n", m.Month, money(m.Total, cur))
				}
				return tw.Flush()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only this month (YYYY-MM)")
	return cmd
}
