package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/id"
	"github.com/fintrack-dev/fintrack/internal/ingest"
)

func newListCommand(g *globalFlags) *cobra.Command {
	var f ingest.Filter
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateMonth(f.Month); err != nil {
				return err
			}
			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			txns, err := p.svc.Transactions(cmd.Context(), f)
			if err != nil {
				return err
			}
			if limit > 0 && len(txns) > limit {
				txns = txns[:limit]
			}

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				printf(out, "No transactions\n")
				return nil
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "DATE\tAMOUNT\tCATEGORY\tDESCRIPTION\tHASH")
			for _, t := range txns {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					t.ValueDate.Format(id.DateFormat),
					signedMoney(t.Signed(), p.cfg.Reports.Currency),
					t.Category,
					t.Description,
					id.ShortHash(t.ContentHash),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&f.Month, "month", "", "only this month (YYYY-MM)")
	cmd.Flags().StringVar(&f.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&f.Search, "search", "", "description contains (case-insensitive)")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many rows")
	return cmd
}
