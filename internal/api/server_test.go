package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/enrich"
	"github.com/fintrack-dev/fintrack/internal/ingest"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/store"
)

const statementFixture = "../../testdata/bank_statement.csv"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestRegisterValidations(t *testing.T) {
	require.NoError(t, registerValidations())
	// registering twice replaces the rule
	require.NoError(t, registerValidations())

	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/summary?month=2025-13", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeCompleter struct{ reply string }

func (f fakeCompleter) Complete(context.Context, string) (string, error) { return f.reply, nil }

func newTestServer(t *testing.T, opts ...ingest.Option) *Server {
	t.Helper()
	root := t.TempDir()
	st, err := store.Open(context.Background(), filepath.Join(root, "finance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := categories.NewRegistry(filepath.Join(root, "categories.json"), []categories.Category{
		{Name: model.Uncategorized},
		{Name: "Groceries", Keywords: []string{"MERCADONA"}},
		{Name: "Utilities"},
		{Name: "Savings", Keywords: []string{"AHORRO"}},
	})
	return New(ingest.NewService(root, st, reg, opts...), zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func upload(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"dev"}`, w.Body.String())
}

func TestUploadAndList(t *testing.T) {
	s := newTestServer(t)

	w := upload(t, s, statementFixture)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := decode[ingest.Report](t, w)
	assert.Equal(t, 6, rep.New)
	assert.Equal(t, "bank_statement.csv", rep.Source.Name)

	w = upload(t, s, statementFixture)
	require.Equal(t, http.StatusOK, w.Code)
	rep = decode[ingest.Report](t, w)
	assert.Zero(t, rep.New)
	assert.Equal(t, 6, rep.Duplicates)

	w = do(t, s, http.MethodGet, "/api/v1/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]transactionDTO](t, w)
	require.Len(t, all, 6)
	assert.Equal(t, "AMAZON.ES MARKETPLACE", all[0].Description)
	assert.Equal(t, "2025-02-02", all[0].ValueDate)

	w = do(t, s, http.MethodGet, "/api/v1/transactions?month=2025-01&category=Groceries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]transactionDTO](t, w), 1)

	w = do(t, s, http.MethodGet, "/api/v1/transactions?search=orange", nil)
	assert.Len(t, decode[[]transactionDTO](t, w), 1)

	w = do(t, s, http.MethodGet, "/api/v1/transactions?month=January", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/imports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)
}

func TestUpload_MissingFile(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/api/v1/imports", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecategorize(t *testing.T) {
	s := newTestServer(t)
	upload(t, s, statementFixture)

	w := do(t, s, http.MethodGet, "/api/v1/transactions?search=orange", nil)
	txns := decode[[]transactionDTO](t, w)
	require.Len(t, txns, 1)

	w = do(t, s, http.MethodPatch, "/api/v1/transactions/"+txns[0].Hash, map[string]string{"category": "Utilities"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Utilities", decode[transactionDTO](t, w).Category)

	w = do(t, s, http.MethodPatch, "/api/v1/transactions/deadbeef", map[string]string{"category": "Utilities"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPatch, "/api/v1/transactions/"+txns[0].Hash, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecategorizeMerchant(t *testing.T) {
	s := newTestServer(t)
	upload(t, s, statementFixture)

	w := do(t, s, http.MethodPost, "/api/v1/merchants/recategorize", map[string]string{
		"description": "RECIBO ORANGE ESPAGNE",
		"category":    "Utilities",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"updated":1}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/v1/categories", nil)
	cats := decode[[]categoryDTO](t, w)
	require.Len(t, cats, 4)
	assert.Equal(t, categoryDTO{Name: "Utilities", Keywords: []string{"RECIBO ORANGE ESPAGNE"}}, cats[2])
	assert.Equal(t, []string{}, cats[0].Keywords)
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Shopping"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Shopping"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/categories", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/categories/Shopping/keywords", map[string]string{"keyword": "AMAZON"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"added":true}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/v1/categories/Travel/keywords", map[string]string{"keyword": "RENFE"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsSummaryMonths(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/months", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	upload(t, s, statementFixture)

	w = do(t, s, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[model.Statistics](t, w)
	assert.Equal(t, 6, stats.TotalCount)
	assert.Equal(t, 4, stats.CountFor(model.Uncategorized))

	w = do(t, s, http.MethodGet, "/api/v1/months", nil)
	assert.JSONEq(t, `["2025-02","2025-01"]`, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/v1/summary?month=2025-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `"income":"2000"`), body)
	assert.True(t, strings.Contains(body, `"savings":"500"`), body)

	w = do(t, s, http.MethodGet, "/api/v1/summary?month=13-2025", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrich_Advisory(t *testing.T) {
	s := newTestServer(t)
	upload(t, s, statementFixture)

	w := do(t, s, http.MethodPost, "/api/v1/enrich", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "advisory")
}

func TestEnrich_Applied(t *testing.T) {
	e := enrich.New(fakeCompleter{reply: `{"Utilities": ["ORANGE"]}`})
	s := newTestServer(t, ingest.WithEnricher(e))
	upload(t, s, statementFixture)

	w := do(t, s, http.MethodPost, "/api/v1/enrich", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Report   ingest.EnrichReport `json:"report"`
		Advisory string              `json:"advisory"`
	}](t, w)
	assert.Empty(t, got.Advisory)
	assert.Equal(t, 1, got.Report.KeywordsAdded)
	assert.Equal(t, 1, got.Report.Recategorized)
}
