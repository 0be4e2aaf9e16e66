package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/ingest"
)

func newImportCommand(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [file.csv...]",
		Short: "Import bank statement CSV files",
		Long: "Import bank statement CSV files. Without arguments, every CSV in the\n" +
			"project's import/ directory is imported and moved to import/processed/.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				reports, err := p.svc.ImportDir(cmd.Context(), format)
				for _, rep := range reports {
					printReport(out, rep)
				}
				if err != nil {
					return err
				}
				if len(reports) == 0 {
					printf(out, "No CSV files in %s\n", filepath.Join(p.root, "import"))
				}
				return nil
			}

			for _, path := range args {
				rep, err := p.svc.ImportFile(cmd.Context(), path, filepath.Base(path), format)
				if err != nil {
					return err
				}
				printReport(out, rep)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "CSV format (default from fintrack.yaml)")
	return cmd
}

func printReport(out io.Writer, rep ingest.Report) {
	printHeading(out, "%s", rep.Source.Name)
	printf(out, "  parsed %d, new %d, duplicates %d, rejected %d\n", rep.Parsed, rep.New, rep.Duplicates, rep.Rejected)
	for _, r := range rep.Rejections {
		printAdvisory(out, "  skipped row %d: %s", r.Line, r.Reason)
	}
	if n := len(rep.Uncategorized); n > 0 {
		printAdvisory(out, "  %d uncategorized descriptions; run `fintrack enrich` or `fintrack recategorize`", n)
	}
}

func newHistoryCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			entries, err := p.svc.History()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				printf(out, "No imports yet\n")
				return nil
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "TIME\tSOURCE\tPARSED\tNEW\tDUPLICATES\tREJECTED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
					e.Timestamp.Local().Format("2006-01-02 15:04"), e.Source, e.Parsed, e.New, e.Duplicates, e.Rejected)
			}
			return tw.Flush()
		},
	}
}
