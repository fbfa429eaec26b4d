// Package tabular reads and writes the spreadsheet formats used for promoter
// bulk import and export.
package tabular

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Record is one data row keyed by its header cell.
type Record = map[string]string

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads CSV rows from r and sends them to a channel. Both channels
// are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV reads a headed CSV document into records. Blank lines are skipped
// and short rows leave the missing columns empty.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([]Record, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)

	var header []string
	records := []Record{}
	for row := range rowCh {
		if header == nil {
			header = normalizeHeader(row)
			continue
		}
		if rec, ok := toRecord(header, row); ok {
			records = append(records, rec)
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if header == nil {
		return nil, eris.New("csv: missing header row")
	}
	return records, nil
}

func normalizeHeader(row []string) []string {
	header := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = h
	}
	return header
}

// toRecord maps row onto header. Rows with no non-empty cell are dropped.
func toRecord(header, row []string) (Record, bool) {
	rec := make(Record, len(header))
	nonEmpty := false
	for i, h := range header {
		if h == "" {
			continue
		}
		var v string
		if i < len(row) {
			v = row[i]
		}
		if strings.TrimSpace(v) != "" {
			nonEmpty = true
		}
		rec[h] = v
	}
	return rec, nonEmpty
}
