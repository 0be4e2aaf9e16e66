package ingest

import (
	"context"
	"fmt"

	"github.com/fintrack-dev/fintrack/internal/enrich"
	"github.com/fintrack-dev/fintrack/internal/model"
)

// EnrichReport is the outcome of an enrichment pass.
type EnrichReport struct {
	Requested     int                 `json:"requested"`
	KeywordsAdded int                 `json:"keywords_added"`
	Suggestions   map[string][]string `json:"suggestions,omitempty"`
	Recategorized int                 `json:"recategorized"`
}

// Enrich asks the model for keywords matching stored uncategorized
// descriptions, merges them into the registry and re-categorizes the
// stored rows the new keywords now match. Errors wrapping
// enrich.ErrUnavailable are advisories: nothing was changed.
func (s *Service) Enrich(ctx context.Context) (EnrichReport, error) {
	if s.enricher == nil {
		return EnrichReport{}, fmt.Errorf("%w: not configured", enrich.ErrUnavailable)
	}

	txns, err := s.store.LoadAll(ctx)
	if err != nil {
		return EnrichReport{}, err
	}

	var pending []model.Transaction
	var descriptions []string
	seen := make(map[string]bool)
	for _, t := range txns {
		if t.Category != model.Uncategorized {
			continue
		}
		pending = append(pending, t)
		if !seen[t.Description] {
			seen[t.Description] = true
			descriptions = append(descriptions, t.Description)
		}
	}
	if len(descriptions) == 0 {
		return EnrichReport{}, nil
	}

	var rep EnrichReport
	rep.Requested = min(len(descriptions), s.enricher.Limit())

	suggestions, err := s.enricher.Suggest(ctx, s.registry.Names(), descriptions)
	if err != nil {
		s.log.Warn().Err(err).Msg("enrichment unavailable")
		return rep, err
	}
	rep.Suggestions = suggestions

	added, err := s.registry.Merge(suggestions)
	if err != nil {
		return rep, fmt.Errorf("merging suggestions: %w", err)
	}
	rep.KeywordsAdded = added
	if added == 0 {
		return rep, fmt.Errorf("%w: no new keywords suggested", enrich.ErrUnavailable)
	}

	if err := s.store.SyncCategoryRegistry(ctx, s.registry.Snapshot()); err != nil {
		return rep, fmt.Errorf("syncing categories: %w", err)
	}

	for _, t := range pending {
		category := s.registry.Match(t.Description)
		if category == model.Uncategorized {
			continue
		}
		if err := s.store.UpdateCategory(ctx, t.ContentHash, category); err != nil {
			return rep, err
		}
		rep.Recategorized++
	}

	s.log.Info().Int("keywords_added", rep.KeywordsAdded).Int("recategorized", rep.Recategorized).Msg("enrichment applied")
	return rep, nil
}
