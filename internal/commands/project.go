package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/config"
	"github.com/fintrack-dev/fintrack/internal/enrich"
	"github.com/fintrack-dev/fintrack/internal/ingest"
	"github.com/fintrack-dev/fintrack/internal/logger"
	"github.com/fintrack-dev/fintrack/internal/store"
)

// project is an opened fintrack directory.
type project struct {
	root  string
	cfg   *config.Config
	log   zerolog.Logger
	store *store.Store
	svc   *ingest.Service
}

// openProject loads config and the category registry, opens the database
// and builds the ingest service. The caller must Close it.
func openProject(ctx context.Context, g *globalFlags) (*project, error) {
	root, err := filepath.Abs(g.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.LoadDir(root)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if log.GetLevel() == zerolog.Disabled {
		if log, err = logger.New(cfg.Log.Level); err != nil {
			return nil, err
		}
	}

	reg, err := categories.Load(cfg.CategoriesPath(root))
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.DatabasePath(root), store.WithLogger(log.With().Str("component", "store").Logger()))
	if err != nil {
		return nil, err
	}

	opts := []ingest.Option{
		ingest.WithLogger(log),
		ingest.WithDefaultFormat(cfg.Import.Format),
		ingest.WithSavingsCategory(cfg.Reports.SavingsCategory),
	}
	if cfg.AI.Enabled {
		completer, err := enrich.NewCompleter(ctx, cfg.AI)
		switch {
		case errors.Is(err, enrich.ErrUnavailable):
			log.Debug().Err(err).Msg("enrichment disabled")
		case err != nil:
			_ = st.Close()
			return nil, err
		default:
			opts = append(opts, ingest.WithEnricher(enrich.New(completer,
				enrich.WithMaxDescriptions(cfg.AI.MaxDescriptions),
				enrich.WithLogger(log.With().Str("component", "enrich").Logger()),
			)))
		}
	}

	return &project{
		root:  root,
		cfg:   cfg,
		log:   log,
		store: st,
		svc:   ingest.NewService(root, st, reg, opts...),
	}, nil
}

func (p *project) Close() error {
	return p.store.Close()
}
