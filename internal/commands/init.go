package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/config"
	"github.com/fintrack-dev/fintrack/internal/store"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new fintrack project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			} else if f := cmd.Flag("dir"); f != nil && f.Changed {
				dir = f.Value.String()
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir)
		},
	}
	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	// Create directory structure.
	for _, d := range []string{"logs", "import", filepath.Join("import", "processed")} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	// Keep an existing registry, e.g. one carried over from another install.
	reg, err := categories.Load(cfg.CategoriesPath(dir))
	if err != nil {
		return err
	}
	if err := reg.Save(); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}

	st, err := store.Open(ctx, cfg.DatabasePath(dir))
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SyncCategoryRegistry(ctx, reg.Snapshot()); err != nil {
		return err
	}

	gitignore := "finance.db\n.env\nimport/processed/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	printf(out, "Initialized fintrack project at %s\n", dir)
	return nil
}
