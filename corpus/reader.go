package corpus

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jamestannner/NeuralNourishment/log"
)

// MinStringLen is the default minimum byte length of a record's joined text.
// Shorter records are discarded from the corpus.
const MinStringLen = 512

// NumColumns is the column count of the RecipeNLG CSV
// (index, title, ingredients, directions, link, source, NER).
const NumColumns = 7

// Reader streams records out of a RecipeNLG-format CSV. Rows with the wrong
// field count and rows shorter than the minimum length are skipped and
// counted rather than failing the read; 2.2M rows of scraped data are not
// uniformly clean.
type Reader struct {
	log zerolog.Logger

	csv    *csv.Reader
	minLen int
	limit  int

	skipped int
	read    int
	header  bool
}

type ReaderOption func(*Reader)

// WithMinLen overrides the minimum record length. Zero disables the filter.
func WithMinLen(n int) ReaderOption {
	return func(r *Reader) {
		r.minLen = n
	}
}

// WithLimit caps the number of records returned. Zero means unlimited.
func WithLimit(n int) ReaderOption {
	return func(r *Reader) {
		r.limit = n
	}
}

func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	c := csv.NewReader(r)
	c.FieldsPerRecord = -1
	c.LazyQuotes = true

	reader := &Reader{
		log:    log.NewLogger("corpus"),
		csv:    c,
		minLen: MinStringLen,
	}

	for _, opt := range opts {
		opt(reader)
	}

	return reader
}

// Open opens the CSV at path. The caller closes the returned closer when done.
func Open(path string, opts ...ReaderOption) (*Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open dataset")
	}

	return NewReader(f, opts...), f, nil
}

// Next returns the next record that passes the filters, or io.EOF when the
// input is exhausted.
func (r *Reader) Next() (*Record, error) {
	if r.limit > 0 && r.read >= r.limit {
		return nil, io.EOF
	}

	for {
		row, err := r.csv.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			r.skipped++
			r.log.Debug().Err(err).Msg("Skipping malformed row")
			continue
		}

		if len(row) != NumColumns {
			r.skipped++
			continue
		}

		// The first row is the header.
		if !r.header {
			r.header = true
			if row[1] == "title" {
				continue
			}
		}

		id, err := strconv.Atoi(row[0])
		if err != nil {
			r.skipped++
			continue
		}

		record := &Record{
			ID:          id,
			Title:       row[1],
			Ingredients: ParseStringList(row[2]),
			Directions:  ParseStringList(row[3]),
			Link:        row[4],
			Source:      row[5],
			NER:         ParseStringList(row[6]),
		}

		if r.minLen > 0 && record.Len() < r.minLen {
			r.skipped++
			continue
		}

		r.read++
		return record, nil
	}
}

// Skipped returns the number of rows dropped so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Read returns the number of records returned so far.
func (r *Reader) Read() int {
	return r.read
}
