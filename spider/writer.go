package spider

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/jamestannner/NeuralNourishment/corpus"
)

const (
	// ScrapedDir holds spider output inside the data directory.
	ScrapedDir = "scraped"
	// ScrapedCSV is the scraped dataset file, in RecipeNLG column order.
	ScrapedCSV = "scraped.csv"
)

var header = []string{"", "title", "ingredients", "directions", "link", "source", "NER"}

// Writer appends scraped records to a RecipeNLG-format CSV. Safe for
// concurrent use.
type Writer struct {
	mu sync.Mutex

	file *os.File
	csv  *csv.Writer
	next int
}

// NewWriter opens (or creates) the scraped CSV at path. New files get the
// header row; existing files are appended to, continuing the id sequence.
func NewWriter(path string) (*Writer, error) {
	next, fresh, err := nextID(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "failed to create scraped directory")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open scraped CSV")
	}

	w := &Writer{
		file: file,
		csv:  csv.NewWriter(file),
		next: next,
	}

	if fresh {
		if err := w.csv.Write(header); err != nil {
			file.Close()
			return nil, errors.Wrap(err, "failed to write header")
		}
	}

	return w, nil
}

// Append writes the record and returns the id it was assigned.
func (w *Writer) Append(record *corpus.Record) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.next

	row := []string{
		strconv.Itoa(id),
		record.Title,
		corpus.FormatStringList(record.Ingredients),
		corpus.FormatStringList(record.Directions),
		record.Link,
		record.Source,
		corpus.FormatStringList(record.NER),
	}

	if err := w.csv.Write(row); err != nil {
		return 0, errors.Wrap(err, "failed to append record")
	}

	w.next++
	return id, nil
}

// Close flushes and closes the CSV.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}

	return w.file.Close()
}

// nextID counts data rows in an existing file so appends continue the id
// sequence. A missing file starts at zero.
func nextID(path string) (next int, fresh bool, err error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to open scraped CSV")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	lines := 0
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, false, errors.Wrap(err, "failed to scan scraped CSV")
	}

	if lines == 0 {
		return 0, true, nil
	}

	// minus the header row
	return lines - 1, false, nil
}
