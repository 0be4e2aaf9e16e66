package commands

import (
	"errors"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/enrich"
)

func newEnrichCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Ask the AI provider for keywords matching uncategorized transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			rep, err := p.svc.Enrich(cmd.Context())
			if errors.Is(err, enrich.ErrUnavailable) {
				printAdvisory(out, "AI categorization unavailable: %v", err)
				return nil
			}
			if err != nil {
				return err
			}
			if rep.Requested == 0 {
				printf(out, "All transactions are categorized\n")
				return nil
			}

			names := make([]string, 0, len(rep.Suggestions))
			for name := range rep.Suggestions {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				printf(out, "  %s: %s\n", name, strings.Join(rep.Suggestions[name], ", "))
			}
			_, _ = success.Fprintf(out, "Added %d keywords, recategorized %d transactions\n", rep.KeywordsAdded, rep.Recategorized)
			return nil
		},
	}
}
