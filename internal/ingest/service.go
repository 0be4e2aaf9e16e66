// Package ingest wires the CSV normalizer, keyword categorizer, transaction
// store, import log and enrichment into the operations exposed by the CLI
// and the HTTP API.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/enrich"
	"github.com/fintrack-dev/fintrack/internal/id"
	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/importlog"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/report"
	"github.com/fintrack-dev/fintrack/internal/store"
)

// ErrUnknownFormat is returned when no parser handles the requested format.
var ErrUnknownFormat = errors.New("unknown import format")

// Service is built once per process and shared by every caller.
type Service struct {
	root            string
	store           *store.Store
	registry        *categories.Registry
	parsers         *importer.Registry
	enricher        *enrich.Enricher
	defaultFormat   string
	savingsCategory string
	now             func() time.Time
	log             zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEnricher enables AI keyword enrichment.
func WithEnricher(e *enrich.Enricher) Option {
	return func(s *Service) { s.enricher = e }
}

// WithParsers replaces the built-in parser registry.
func WithParsers(p *importer.Registry) Option {
	return func(s *Service) { s.parsers = p }
}

// WithDefaultFormat sets the format used when a source names none.
func WithDefaultFormat(format string) Option {
	return func(s *Service) { s.defaultFormat = format }
}

// WithSavingsCategory names the category reported as savings.
func WithSavingsCategory(name string) Option {
	return func(s *Service) { s.savingsCategory = name }
}

// WithClock overrides the import log timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a Service rooted at root, where the import/ and logs/
// directories live.
func NewService(root string, st *store.Store, reg *categories.Registry, opts ...Option) *Service {
	s := &Service{
		root:            root,
		store:           st,
		registry:        reg,
		parsers:         importer.DefaultRegistry(),
		defaultFormat:   "statement",
		savingsCategory: "Savings",
		now:             time.Now,
		log:             zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the category registry the service categorizes with.
func (s *Service) Registry() *categories.Registry { return s.registry }

// SavingsCategory returns the category reported as savings.
func (s *Service) SavingsCategory() string { return s.savingsCategory }

// Source identifies the input of an import.
type Source struct {
	Name   string `json:"name"`
	Format string `json:"format"`
}

// Rejection is a row the normalizer could not read.
type Rejection struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Report is the outcome of one import. Parsed counts valid rows; every one
// of them is either New or a Duplicate.
type Report struct {
	BatchID       string      `json:"batch_id"`
	Source        Source      `json:"source"`
	Parsed        int         `json:"parsed"`
	New           int         `json:"new"`
	Duplicates    int         `json:"duplicates"`
	Rejected      int         `json:"rejected"`
	Rejections    []Rejection `json:"rejections,omitempty"`
	Uncategorized []string    `json:"uncategorized,omitempty"`
}

// Import normalizes r, categorizes each row by keyword and stores the batch.
// Malformed rows are reported, not fatal; a file missing required columns
// fails as a whole and stores nothing.
func (s *Service) Import(ctx context.Context, r io.Reader, src Source) (Report, error) {
	if src.Format == "" {
		src.Format = s.defaultFormat
	}
	parser := s.parsers.Get(src.Format)
	if parser == nil {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownFormat, src.Format)
	}

	res, err := parser.Parse(r)
	if err != nil {
		return Report{}, fmt.Errorf("parsing %s: %w", src.Name, err)
	}

	rep := Report{
		BatchID: id.NewBatchID(),
		Source:  src,
		Parsed:  len(res.Transactions),
	}
	for _, re := range res.Rejected {
		rep.Rejections = append(rep.Rejections, Rejection{Line: re.Line, Reason: re.Err.Error()})
	}
	rep.Rejected = len(rep.Rejections)

	log := s.log.With().Str("batch", rep.BatchID).Str("source", src.Name).Logger()

	seen := make(map[string]bool)
	for i := range res.Transactions {
		t := &res.Transactions[i]
		t.Category = s.registry.Match(t.Description)
		if t.Category == model.Uncategorized && !seen[t.Description] {
			seen[t.Description] = true
			rep.Uncategorized = append(rep.Uncategorized, t.Description)
		}
	}

	ins, err := s.store.InsertBatch(ctx, res.Transactions)
	if err != nil {
		return Report{}, fmt.Errorf("storing %s: %w", src.Name, err)
	}
	rep.New = ins.New
	rep.Duplicates = ins.Skipped

	if err := s.store.SyncCategoryRegistry(ctx, s.registry.Snapshot()); err != nil {
		return rep, fmt.Errorf("syncing categories: %w", err)
	}

	if err := importlog.Append(s.root, importlog.Entry{
		Timestamp:  s.now(),
		BatchID:    rep.BatchID,
		Source:     src.Name,
		Format:     src.Format,
		Parsed:     rep.Parsed,
		New:        rep.New,
		Duplicates: rep.Duplicates,
		Rejected:   rep.Rejected,
	}); err != nil {
		return rep, fmt.Errorf("writing import log: %w", err)
	}

	log.Info().
		Int("parsed", rep.Parsed).
		Int("new", rep.New).
		Int("duplicates", rep.Duplicates).
		Int("rejected", rep.Rejected).
		Int("uncategorized", len(rep.Uncategorized)).
		Msg("import complete")
	return rep, nil
}

// ImportFile imports the CSV at path under its base name.
func (s *Service) ImportFile(ctx context.Context, path, name, format string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()
	return s.Import(ctx, f, Source{Name: name, Format: format})
}

// ImportDir imports every CSV in <root>/import/ and moves each one to
// import/processed/ once stored. It stops at the first failing file.
func (s *Service) ImportDir(ctx context.Context, format string) ([]Report, error) {
	files, err := importer.Scan(s.root)
	if err != nil {
		return nil, err
	}

	var reports []Report
	for _, f := range files {
		rep, err := s.ImportFile(ctx, f.Path, f.Name, format)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
		if err := importer.MarkProcessed(s.root, f.Name); err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// History returns the import log, oldest first.
func (s *Service) History() ([]importlog.Entry, error) {
	return importlog.Read(s.root)
}

// Recategorize sets the category of one stored transaction.
func (s *Service) Recategorize(ctx context.Context, hash, category string) (model.Transaction, error) {
	if !s.registry.Has(category) {
		return model.Transaction{}, fmt.Errorf("%w: %q", categories.ErrCategoryNotFound, category)
	}
	if _, err := s.store.Get(ctx, hash); err != nil {
		return model.Transaction{}, err
	}
	if err := s.store.UpdateCategory(ctx, hash, category); err != nil {
		return model.Transaction{}, err
	}
	return s.store.Get(ctx, hash)
}

// RecategorizeMerchant moves every transaction with exactly this description
// to category and teaches the registry the description as a keyword, so
// future imports of the same merchant land there too.
func (s *Service) RecategorizeMerchant(ctx context.Context, description, category string) (int64, error) {
	if !s.registry.Has(category) {
		return 0, fmt.Errorf("%w: %q", categories.ErrCategoryNotFound, category)
	}

	n, err := s.store.UpdateCategoryByDescription(ctx, description, category)
	if err != nil {
		return 0, err
	}

	if kw := strings.TrimSpace(description); kw != "" && category != model.Uncategorized {
		if _, err := s.registry.AddKeyword(category, kw); err != nil {
			return n, fmt.Errorf("adding keyword: %w", err)
		}
	}
	if err := s.store.SyncCategoryRegistry(ctx, s.registry.Snapshot()); err != nil {
		return n, fmt.Errorf("syncing categories: %w", err)
	}

	s.log.Info().Str("description", description).Str("category", category).Int64("updated", n).Msg("merchant recategorized")
	return n, nil
}

// AddCategory registers a new, empty category.
func (s *Service) AddCategory(ctx context.Context, name string) error {
	if err := s.registry.AddCategory(name); err != nil {
		return err
	}
	return s.store.SyncCategoryRegistry(ctx, s.registry.Snapshot())
}

// AddKeyword appends keyword to category. It reports false when the keyword
// was already present.
func (s *Service) AddKeyword(ctx context.Context, category, keyword string) (bool, error) {
	added, err := s.registry.AddKeyword(category, keyword)
	if err != nil || !added {
		return added, err
	}
	return true, s.store.SyncCategoryRegistry(ctx, s.registry.Snapshot())
}

// Categories returns the registry in order.
func (s *Service) Categories() []categories.Category {
	return s.registry.All()
}

// Filter narrows Transactions. Zero fields match everything.
type Filter struct {
	Month    string
	Category string
	Search   string
}

// Transactions returns stored transactions matching f, newest first.
func (s *Service) Transactions(ctx context.Context, f Filter) ([]model.Transaction, error) {
	txns, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	txns = report.FilterMonth(txns, f.Month)
	txns = report.FilterCategory(txns, f.Category)
	return report.Search(txns, f.Search), nil
}

// Statistics returns the store statistics.
func (s *Service) Statistics(ctx context.Context) (model.Statistics, error) {
	return s.store.Statistics(ctx)
}

// Months returns the months with data, newest first.
func (s *Service) Months(ctx context.Context) ([]string, error) {
	txns, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return report.Months(txns), nil
}

// MonthSummary groups the figures for one month, or for all data when
// Month is empty.
type MonthSummary struct {
	Month          string                 `json:"month"`
	Summary        report.Summary         `json:"summary"`
	Breakdown      []report.CategoryTotal `json:"breakdown"`
	SavingsTrend   []report.SavingsPoint  `json:"savings_trend"`
	MonthlySavings []report.MonthTotal    `json:"monthly_savings"`
}

// Summary computes totals, the expense breakdown and savings figures.
func (s *Service) Summary(ctx context.Context, month string) (MonthSummary, error) {
	txns, err := s.store.LoadAll(ctx)
	if err != nil {
		return MonthSummary{}, err
	}
	txns = report.FilterMonth(txns, month)
	return MonthSummary{
		Month:          month,
		Summary:        report.Summarize(txns, s.savingsCategory),
		Breakdown:      report.Breakdown(txns, s.savingsCategory),
		SavingsTrend:   report.SavingsTrend(txns, s.savingsCategory),
		MonthlySavings: report.MonthlySavings(txns, s.savingsCategory),
	}, nil
}
