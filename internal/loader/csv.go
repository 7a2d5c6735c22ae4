package loader

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/biorecs/occuncertainty/internal/model"
)

// CSVOptions configures the CSV record reader.
type CSVOptions struct {
	Delimiter rune   // default ','
	Charset   string // e.g. "latin1"; empty means UTF-8
}

// ReadCSV reads an occurrence table from CSV. The first row is the
// header; unknown columns are ignored, and column order is free.
func ReadCSV(r io.Reader, opts CSVOptions) ([]model.Record, error) {
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: unsupported charset %q", opts.Charset)
		}
		r = enc.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "loader: read csv header")
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "loader: read csv row")
		}
		rows = append(rows, row)
	}

	return recordsFromRows(header, rows)
}
