// Package enrich asks a language model for new category keywords that would
// match descriptions the keyword categorizer left uncategorized.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// ErrUnavailable marks every enrichment failure. Callers treat it as an
// advisory: nothing was merged and ingestion results stand.
var ErrUnavailable = errors.New("enrichment unavailable")

// DefaultMaxDescriptions caps the descriptions sent in one request.
const DefaultMaxDescriptions = 20

// Completer sends a prompt to a language model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Enricher turns uncategorized descriptions into keyword suggestions.
type Enricher struct {
	completer Completer
	max       int
	log       zerolog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithMaxDescriptions overrides DefaultMaxDescriptions. Non-positive values
// are ignored.
func WithMaxDescriptions(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.max = n
		}
	}
}

// WithLogger sets the enricher logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Enricher) { e.log = log }
}

// New returns an Enricher backed by c.
func New(c Completer, opts ...Option) *Enricher {
	e := &Enricher{completer: c, max: DefaultMaxDescriptions, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limit returns the maximum number of descriptions per request.
func (e *Enricher) Limit() int { return e.max }

// Suggest returns new keywords per existing category for the given
// descriptions. Only the first Limit() unique descriptions are sent.
// Suggestions for categories not in categories, or for Uncategorized, are
// dropped. The reply must be a JSON object of string arrays; anything else
// is rejected whole and reported as ErrUnavailable.
func (e *Enricher) Suggest(ctx context.Context, categories, descriptions []string) (map[string][]string, error) {
	descriptions = capUnique(descriptions, e.max)
	if len(descriptions) == 0 {
		return nil, fmt.Errorf("%w: no descriptions to categorize", ErrUnavailable)
	}

	prompt := BuildPrompt(categories, descriptions)
	e.log.Debug().Int("descriptions", len(descriptions)).Int("prompt_len", len(prompt)).Msg("requesting keyword suggestions")

	reply, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	suggestions, err := ParseSuggestions(reply)
	if err != nil {
		e.log.Warn().Err(err).Str("reply", truncate(reply, 200)).Msg("discarding model reply")
		return nil, err
	}

	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c] = true
	}
	out := make(map[string][]string, len(suggestions))
	for category, kws := range suggestions {
		if category == model.Uncategorized || !known[category] {
			e.log.Debug().Str("category", category).Msg("skipping unknown category")
			continue
		}
		out[category] = kws
	}
	return out, nil
}

// ParseSuggestions decodes a model reply into category -> keywords. Markdown
// code fences and text around the outermost JSON object are ignored.
func ParseSuggestions(reply string) (map[string][]string, error) {
	body := extractObject(stripFences(reply))
	if body == "" {
		return nil, fmt.Errorf("%w: reply contains no JSON object", ErrUnavailable)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	var out map[string][]string
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding reply: %w", ErrUnavailable, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: reply is null", ErrUnavailable)
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func capUnique(descriptions []string, max int) []string {
	seen := make(map[string]bool, len(descriptions))
	var out []string
	for _, d := range descriptions {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
		if len(out) == max {
			break
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
