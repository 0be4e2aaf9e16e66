package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/ingest"
	"github.com/fintrack-dev/fintrack/internal/store"
)

func newRecategorizeCommand(g *globalFlags) *cobra.Command {
	var hash, description string

	cmd := &cobra.Command{
		Use:   "recategorize <category>",
		Short: "Change the category of one transaction or of a merchant",
		Long: "Change the category of one transaction (--hash, full or prefix as shown by\n" +
			"`fintrack list`) or of every transaction with an exact description\n" +
			"(--description). The merchant form also adds the description as a keyword\n" +
			"so future imports are categorized the same way.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (hash == "") == (description == "") {
				return errors.New("exactly one of --hash or --description is required")
			}

			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			category := args[0]
			out := cmd.OutOrStdout()
			if description != "" {
				n, err := p.svc.RecategorizeMerchant(cmd.Context(), description, category)
				if err != nil {
					return err
				}
				_, _ = success.Fprintf(out, "Updated %d transactions to %s\n", n, category)
				return nil
			}

			full, err := resolveHash(cmd.Context(), p.svc, hash)
			if err != nil {
				return err
			}
			t, err := p.svc.Recategorize(cmd.Context(), full, category)
			if err != nil {
				return err
			}
			_, _ = success.Fprintf(out, "%s %s -> %s\n", t.ValueDate.Format("2006-01-02"), t.Description, t.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "", "content hash or unique prefix")
	cmd.Flags().StringVar(&description, "description", "", "exact transaction description")
	return cmd
}

// resolveHash expands a hash prefix to the single stored hash it matches.
func resolveHash(ctx context.Context, svc *ingest.Service, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	txns, err := svc.Transactions(ctx, ingest.Filter{})
	if err != nil {
		return "", err
	}
	var match string
	for _, t := range txns {
		if !strings.HasPrefix(t.ContentHash, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("hash prefix %q is ambiguous", prefix)
		}
		match = t.ContentHash
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", store.ErrNotFound, prefix)
	}
	return match, nil
}
