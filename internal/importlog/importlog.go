// Package importlog keeps an append-only CSV audit trail of import runs.
package importlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry records the outcome of one import run.
type Entry struct {
	Timestamp  time.Time
	BatchID    string
	Source     string
	Format     string
	Parsed     int
	New        int
	Duplicates int
	Rejected   int
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,batch_id,source,format,parsed,new,duplicates,rejected"

const (
	numFields  = 8
	logDir     = "logs"
	logFile    = "import-log.csv"
	colTime    = 0
	colBatch   = 1
	colSource  = 2
	colFormat  = 3
	colParsed  = 4
	colNew     = 5
	colDups    = 6
	colRejects = 7
)

// Path returns the log file location under root.
func Path(root string) string {
	return filepath.Join(root, logDir, logFile)
}

func marshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colBatch] = e.BatchID
	row[colSource] = e.Source
	row[colFormat] = e.Format
	row[colParsed] = strconv.Itoa(e.Parsed)
	row[colNew] = strconv.Itoa(e.New)
	row[colDups] = strconv.Itoa(e.Duplicates)
	row[colRejects] = strconv.Itoa(e.Rejected)
	return row
}

func unmarshalEntry(record []string) (Entry, error) {
	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}
	e := Entry{
		Timestamp: ts,
		BatchID:   record[colBatch],
		Source:    record[colSource],
		Format:    record[colFormat],
	}
	counts := []struct {
		col int
		dst *int
	}{
		{colParsed, &e.Parsed},
		{colNew, &e.New},
		{colDups, &e.Duplicates},
		{colRejects, &e.Rejected},
	}
	for _, c := range counts {
		n, err := strconv.Atoi(record[c.col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[c.col], err)
		}
		*c.dst = n
	}
	return e, nil
}

// Append writes e to <root>/logs/import-log.csv, creating the file and
// header if needed.
func Append(root string, e Entry) error {
	if err := os.MkdirAll(filepath.Join(root, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(root)
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := cw.Write(marshalEntry(e)); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries, oldest first. A missing log is empty.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(Path(root))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := unmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
