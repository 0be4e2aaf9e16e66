package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/id"
	"github.com/fintrack-dev/fintrack/internal/model"
)

func parseFixture(t *testing.T, name string) Result {
	t.Helper()
	f, err := os.Open(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	defer f.Close()

	p := &StatementParser{}
	res, err := p.Parse(f)
	require.NoError(t, err)
	return res
}

func TestStatementParser_Parse(t *testing.T) {
	res := parseFixture(t, "bank_statement.csv")
	require.Len(t, res.Transactions, 6)
	assert.Empty(t, res.Rejected)

	first := res.Transactions[0]
	assert.Equal(t, "COMPRA TARJ. MERCADONA VALENCIA", first.Description)
	assert.Equal(t, "45.30", first.Amount.StringFixed(2))
	assert.Equal(t, model.KindDebit, first.Kind)
	assert.Equal(t, model.Uncategorized, first.Category)
	assert.Equal(t, 2025, first.ValueDate.Year())
	assert.Equal(t, 1, int(first.ValueDate.Month()))
	assert.Equal(t, 3, first.ValueDate.Day())
	assert.Equal(t, id.ContentHash(first.ValueDate, first.Description, first.Amount), first.ContentHash)

	salary := res.Transactions[1]
	assert.Equal(t, model.KindCredit, salary.Kind)
	assert.Equal(t, "2000.00", salary.Amount.StringFixed(2))

	zero := res.Transactions[4]
	assert.Equal(t, model.KindCredit, zero.Kind)
	assert.True(t, zero.Amount.IsZero())

	amazon := res.Transactions[5]
	assert.Equal(t, "1234.56", amazon.Amount.StringFixed(2))
	assert.Equal(t, model.KindDebit, amazon.Kind)
}

func TestStatementParser_AmountsNeverNegative(t *testing.T) {
	res := parseFixture(t, "bank_statement.csv")
	for _, txn := range res.Transactions {
		assert.False(t, txn.Amount.IsNegative(), "amount for %s", txn.Description)
	}
}

func TestStatementParser_SkipsMalformedRows(t *testing.T) {
	res := parseFixture(t, "malformed_rows.csv")
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "COMPRA TARJ. MERCADONA VALENCIA", res.Transactions[0].Description)
	assert.Equal(t, "FARMACIA LOPEZ", res.Transactions[1].Description)

	require.Len(t, res.Rejected, 3)
	assert.Equal(t, 3, res.Rejected[0].Line)
	assert.ErrorIs(t, res.Rejected[0], ErrMalformedDate)
	assert.Equal(t, 4, res.Rejected[1].Line)
	assert.ErrorIs(t, res.Rejected[1], ErrMalformedAmount)
	assert.Contains(t, res.Rejected[1].Error(), "row 4")
	assert.Equal(t, 6, res.Rejected[2].Line)
	assert.ErrorIs(t, res.Rejected[2], ErrMalformedDescription)
}

func TestStatementParser_HeaderOnly(t *testing.T) {
	p := &StatementParser{}
	res, err := p.Parse(strings.NewReader("Fecha valor,Concepto,Importe,Saldo\n"))
	require.NoError(t, err)
	assert.Nil(t, res.Transactions)
	assert.Nil(t, res.Rejected)
}

func TestStatementParser_EmptyInput(t *testing.T) {
	p := &StatementParser{}
	res, err := p.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
}

func TestStatementParser_MissingColumn(t *testing.T) {
	p := &StatementParser{}
	_, err := p.Parse(strings.NewReader("Fecha valor,Importe\n03/01/2025,\"-1,00€\"\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "Concepto")
}

func TestStatementParser_ColumnOrderAndBOM(t *testing.T) {
	csv := "\ufeffImporte,Concepto,Fecha valor\n\"-9,99€\",NETFLIX,01/03/2025\n"
	p := &StatementParser{}
	res, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "NETFLIX", res.Transactions[0].Description)
	assert.Equal(t, "9.99", res.Transactions[0].Amount.StringFixed(2))
	assert.Equal(t, 3, int(res.Transactions[0].ValueDate.Month()))
}

func TestStatementParser_Semicolon(t *testing.T) {
	csv := "Fecha valor;Concepto;Importe\n01/03/2025;NETFLIX;-9,99 €\n"
	p := &StatementParser{Comma: ';'}
	res, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "9.99", res.Transactions[0].Amount.StringFixed(2))
}

func TestStatementParser_DescriptionVerbatim(t *testing.T) {
	csv := "Fecha valor,Concepto,Importe\n01/03/2025,  PADDED DESC  ,\"-1,00€\"\n"
	p := &StatementParser{}
	res, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "  PADDED DESC  ", res.Transactions[0].Description)
	assert.Equal(t, id.ContentHash(res.Transactions[0].ValueDate, "PADDED DESC", res.Transactions[0].Amount), res.Transactions[0].ContentHash)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.234,56€", "1234.56"},
		{"-12,50€", "-12.50"},
		{"0,00€", "0.00"},
		{"-1.000.000,00 €", "-1000000.00"},
		{" 7,5 ", "7.50"},
		{"$3,10", "3.10"},
		{"+1.500,00€", "1500.00"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.StringFixed(2), "ParseAmount(%q)", tt.in)
	}
}

func TestParseAmount_Malformed(t *testing.T) {
	for _, in := range []string{"", "€", "abc", "1,2,3", "--5", "1e3", "2,5E2€"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrMalformedAmount, "ParseAmount(%q)", in)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("31/12/2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", d.Format("2006-01-02"))

	d, err = ParseDate("1/2/2025")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", d.Format("2006-01-02"))
}

func TestParseDate_NoFallback(t *testing.T) {
	for _, in := range []string{"2025-01-03", "12/31/2024", "03-01-2025", ""} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrMalformedDate, "ParseDate(%q)", in)
	}
}

func TestStatementParser_Format(t *testing.T) {
	p := &StatementParser{}
	assert.Equal(t, "statement", p.Format())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&StatementParser{})
	assert.NotNil(t, r.Get("Statement"))
	assert.NotNil(t, r.Get("STATEMENT"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&StatementParser{})
	assert.Panics(t, func() { r.Register(&StatementParser{}) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("statement"))
}

func TestScan_FindsCSVs(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(filepath.Join(importDir, "processed"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "enero.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "notes.txt"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "processed", "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "enero.csv", files[0].Name)
	assert.Equal(t, int64(4), files[0].Size)
}

func TestScan_NoImportDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "enero.csv"), []byte("data"), 0o644))

	require.NoError(t, MarkProcessed(dir, "enero.csv"))

	_, err := os.Stat(filepath.Join(importDir, "enero.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "enero.csv"))
	assert.NoError(t, err)
}
