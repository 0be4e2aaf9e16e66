package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCategoryCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories and their keywords",
	}
	cmd.AddCommand(
		newCategoryListCommand(g),
		newCategoryAddCommand(g),
		newCategoryKeywordCommand(g),
	)
	return cmd
}

func newCategoryListCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "CATEGORY\tKEYWORDS")
			for _, c := range p.svc.Categories() {
				fmt.Fprintf(tw, "%s\t%s\n", c.Name, strings.Join(c.Keywords, ", "))
			}
			return tw.Flush()
		},
	}
}

func newCategoryAddCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add an empty category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.svc.AddCategory(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = success.Fprintf(cmd.OutOrStdout(), "Added category %s\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
}

func newCategoryKeywordCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "keyword <category> <keyword>",
		Short: "Add a match keyword to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer p.Close()

			added, err := p.svc.AddKeyword(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !added {
				printAdvisory(out, "%s already has keyword %q", args[0], strings.TrimSpace(args[1]))
				return nil
			}
			_, _ = success.Fprintf(out, "Added keyword %q to %s\n", strings.TrimSpace(args[1]), args[0])
			return nil
		},
	}
}
