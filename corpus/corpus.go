package corpus

import (
	"io"

	"github.com/pkg/errors"
)

// Mode selects how records are rendered into corpus text.
type Mode = string

const (
	// ModeIngredients joins only the ingredient lists, the corpus used by the
	// character-level model.
	ModeIngredients Mode = "ingredients"
	// ModeDocuments renders full delimited recipe documents.
	ModeDocuments Mode = "documents"
)

// Stats summarizes a pass over the dataset.
type Stats struct {
	Records       int
	Skipped       int
	Bytes         int64
	DistinctChars int
}

// Build streams records from the reader and writes corpus text to w, one
// record per line. It returns stats for the pass.
func Build(r *Reader, w io.Writer, mode Mode) (*Stats, error) {
	stats := &Stats{}
	chars := make(map[rune]struct{})

	for {
		record, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var text string
		switch mode {
		case ModeDocuments:
			text = record.Document()
		case ModeIngredients:
			text = record.IngredientText()
		default:
			return nil, errors.Errorf("unknown corpus mode: %s", mode)
		}

		if stats.Records > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return nil, errors.Wrap(err, "failed to write corpus")
			}
			stats.Bytes++
		}

		if _, err := io.WriteString(w, text); err != nil {
			return nil, errors.Wrap(err, "failed to write corpus")
		}

		for _, c := range text {
			chars[c] = struct{}{}
		}

		stats.Records++
		stats.Bytes += int64(len(text))
	}

	stats.Skipped = r.Skipped()
	stats.DistinctChars = len(chars)

	return stats, nil
}
