package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/config"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

var testCategories = []string{"Uncategorized", "Groceries", "Utilities"}

func TestSuggest(t *testing.T) {
	fc := &fakeCompleter{reply: `{"Groceries": ["MERCADONA"], "Utilities": ["ORANGE"]}`}
	e := New(fc)

	got, err := e.Suggest(context.Background(), testCategories, []string{"COMPRA MERCADONA", "RECIBO ORANGE"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"Groceries": {"MERCADONA"},
		"Utilities": {"ORANGE"},
	}, got)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "COMPRA MERCADONA")
	assert.Contains(t, fc.prompts[0], `"Groceries"`)
}

func TestSuggest_DropsUnknownCategories(t *testing.T) {
	fc := &fakeCompleter{reply: `{"Groceries": ["LIDL"], "Travel": ["RENFE"], "Uncategorized": ["X"]}`}
	got, err := New(fc).Suggest(context.Background(), testCategories, []string{"LIDL 123"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Groceries": {"LIDL"}}, got)
}

func TestSuggest_CapsUniqueDescriptions(t *testing.T) {
	fc := &fakeCompleter{reply: `{}`}
	e := New(fc, WithMaxDescriptions(3))
	assert.Equal(t, 3, e.Limit())

	var descs []string
	for i := 0; i < 10; i++ {
		descs = append(descs, fmt.Sprintf("SHOP %d", i/2))
	}
	_, err := e.Suggest(context.Background(), testCategories, descs)
	require.NoError(t, err)

	prompt := fc.prompts[0]
	assert.Contains(t, prompt, "- SHOP 0\n")
	assert.Contains(t, prompt, "- SHOP 2\n")
	assert.NotContains(t, prompt, "SHOP 3")
	assert.Equal(t, 1, strings.Count(prompt, "- SHOP 0\n"))
}

func TestSuggest_DefaultLimit(t *testing.T) {
	fc := &fakeCompleter{reply: `{}`}
	var descs []string
	for i := 0; i < 30; i++ {
		descs = append(descs, fmt.Sprintf("MERCHANT %02d", i))
	}
	_, err := New(fc, WithMaxDescriptions(0)).Suggest(context.Background(), testCategories, descs)
	require.NoError(t, err)
	assert.Contains(t, fc.prompts[0], "MERCHANT 19")
	assert.NotContains(t, fc.prompts[0], "MERCHANT 20")
}

func TestSuggest_Failures(t *testing.T) {
	tests := []struct {
		name  string
		fc    *fakeCompleter
		descs []string
	}{
		{"transport", &fakeCompleter{err: errors.New("connection reset")}, []string{"A"}},
		{"empty reply", &fakeCompleter{reply: ""}, []string{"A"}},
		{"prose", &fakeCompleter{reply: "I could not categorize these."}, []string{"A"}},
		{"wrong shape", &fakeCompleter{reply: `{"Groceries": "MERCADONA"}`}, []string{"A"}},
		{"array", &fakeCompleter{reply: `["MERCADONA"]`}, []string{"A"}},
		{"no descriptions", &fakeCompleter{reply: `{}`}, []string{"  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.fc).Suggest(context.Background(), testCategories, tt.descs)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnavailable)
			assert.Nil(t, got)
		})
	}
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  map[string][]string
	}{
		{"plain", `{"Groceries": ["LIDL"]}`, map[string][]string{"Groceries": {"LIDL"}}},
		{"json fence", "```json\n{\"Groceries\": [\"LIDL\"]}\n```", map[string][]string{"Groceries": {"LIDL"}}},
		{"bare fence", "```\n{\"Utilities\": [\"ORANGE\"]}\n```", map[string][]string{"Utilities": {"ORANGE"}}},
		{"surrounding text", "Here you go:\n{\"Groceries\": []}\nThanks", map[string][]string{"Groceries": {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestions(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCompleter(t *testing.T) {
	cfg := config.Default().AI
	cfg.APIKeyEnv = "FINTRACK_ENRICH_TEST_KEY"

	t.Setenv("FINTRACK_ENRICH_TEST_KEY", "")
	_, err := NewCompleter(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnavailable)

	t.Setenv("FINTRACK_ENRICH_TEST_KEY", "sk-test")
	c, err := NewCompleter(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicCompleter{}, c)

	cfg.Provider = "gemini"
	cfg.Model = ""
	c, err = NewCompleter(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &GeminiCompleter{}, c)

	cfg.Provider = "openai"
	_, err = NewCompleter(context.Background(), cfg)
	assert.Error(t, err)
}
