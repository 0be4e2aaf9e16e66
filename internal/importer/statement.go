package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// Column names of the bank statement export.
const (
	ColValueDate   = "Fecha valor"
	ColDescription = "Concepto"
	ColAmount      = "Importe"
	ColBalance     = "Saldo"
)

// statementDateFormat is day/month/year; single-digit day and month are accepted.
const statementDateFormat = "2/1/2006"

// StatementParser parses bank statement exports with the columns
// "Fecha valor", "Concepto", "Importe" and an optional running "Saldo".
type StatementParser struct {
	// Comma overrides the field delimiter. Zero means ','.
	Comma rune
}

// Format returns the parser name.
func (p *StatementParser) Format() string { return "statement" }

// Parse reads a statement CSV. A missing required column fails the whole
// file; a malformed row is skipped and reported in Result.Rejected.
func (p *StatementParser) Parse(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if p.Comma != 0 {
		cr.Comma = p.Comma
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("reading statement header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Rejected = append(res.Rejected, RowError{Line: perr.StartLine, Err: perr.Err})
				continue
			}
			return Result{}, fmt.Errorf("reading statement CSV: %w", err)
		}

		line, _ := cr.FieldPos(0)
		if isBlank(rec) {
			continue
		}
		txn, err := cols.parseRow(rec)
		if err != nil {
			res.Rejected = append(res.Rejected, RowError{Line: line, Err: err})
			continue
		}
		res.Transactions = append(res.Transactions, txn)
	}
	return res, nil
}

type columns struct {
	date, desc, amount int
}

// mapColumns trims header names and locates the required columns.
// The balance column and any other extra column are ignored.
func mapColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == ColBalance {
			continue
		}
		idx[h] = i
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := idx[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}
	cols := columns{
		date:   lookup(ColValueDate),
		desc:   lookup(ColDescription),
		amount: lookup(ColAmount),
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) parseRow(rec []string) (model.Transaction, error) {
	need := max(c.date, c.desc, c.amount) + 1
	if len(rec) < need {
		return model.Transaction{}, fmt.Errorf("expected at least %d fields, got %d", need, len(rec))
	}

	signed, err := ParseAmount(rec[c.amount])
	if err != nil {
		return model.Transaction{}, err
	}

	date, err := ParseDate(rec[c.date])
	if err != nil {
		return model.Transaction{}, err
	}

	if strings.TrimSpace(rec[c.desc]) == "" {
		return model.Transaction{}, fmt.Errorf("%w: empty", ErrMalformedDescription)
	}

	return model.NewTransaction(date, rec[c.desc], signed), nil
}

// ParseAmount parses a locale-formatted amount such as "1.234,56€" or
// "-12,50 €": currency symbols and spaces are dropped, '.' groups thousands
// and ',' is the decimal separator. A leading '+' is accepted; exponent
// notation is not.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r), unicode.Is(unicode.Sc, r), r == '.':
			return -1
		case r == ',':
			return '.'
		}
		return r
	}, s)
	if cleaned == "" || strings.ContainsAny(cleaned, "eE") {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return d, nil
}

// ParseDate parses a DD/MM/YYYY value date. No other layout is tried.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(statementDateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
