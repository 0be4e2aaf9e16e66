package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	heading  = color.New(color.Bold)
	advisory = color.New(color.FgYellow)
	success  = color.New(color.FgGreen)
	negative = color.New(color.FgRed)
)

func money(d decimal.Decimal, currency string) string {
	if currency == "" {
		return d.StringFixed(2)
	}
	return d.StringFixed(2) + " " + currency
}

func signedMoney(d decimal.Decimal, currency string) string {
	s := money(d, currency)
	if d.IsNegative() {
		return negative.Sprint(s)
	}
	return s
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printHeading(w io.Writer, format string, args ...any) {
	_, _ = heading.Fprintf(w, format+"\n", args...)
}

func printAdvisory(w io.Writer, format string, args ...any) {
	_, _ = advisory.Fprintf(w, format+"\n", args...)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func validateMonth(month string) error {
	if month == "" {
		return nil
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("invalid --month %q: want YYYY-MM", month)
	}
	return nil
}
