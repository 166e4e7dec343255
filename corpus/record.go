package corpus

import (
	"strconv"
	"strings"
)

// Special tokens that delimit recipe documents in the training corpus.
const (
	PadToken      = "<|pad|>"
	StartOfRecipe = "<|recipe_start|>"
	EndOfRecipe   = "<|recipe_end|>"
	OOVToken      = "<|oov|>"
)

// SpecialTokens returns the special token ids for a given vocabulary size,
// assigned from the top of the id space downward.
func SpecialTokens(vocabSize int) map[string]int {
	return map[string]int{
		PadToken:      vocabSize - 4,
		StartOfRecipe: vocabSize - 3,
		EndOfRecipe:   vocabSize - 2,
		OOVToken:      vocabSize - 1,
	}
}

// Record is a single recipe row of the RecipeNLG dataset. The ingredients,
// directions and NER columns are stored in the CSV as stringified lists
// ("['flour', 'sugar']") and are decoded into slices here.
type Record struct {
	ID          int
	Title       string
	Ingredients []string
	Directions  []string
	Link        string
	Source      string
	NER         []string
}

// IngredientText joins the ingredient list with spaces. This is the corpus
// mode used by the character-level model.
func (r *Record) IngredientText() string {
	return strings.Join(r.Ingredients, " ")
}

// Document renders the record as a delimited training document.
func (r *Record) Document() string {
	var b strings.Builder
	b.WriteString(StartOfRecipe)
	b.WriteByte(' ')
	b.WriteString(r.Title)
	b.WriteByte('\n')
	b.WriteString(strings.Join(r.Ingredients, "\n"))
	b.WriteByte('\n')
	b.WriteString(strings.Join(r.Directions, "\n"))
	b.WriteByte(' ')
	b.WriteString(EndOfRecipe)
	return b.String()
}

// Len returns the byte length of the record's joined text, used for the
// minimum-length corpus filter.
func (r *Record) Len() int {
	return len(r.Title) + len(r.IngredientText()) + len(strings.Join(r.Directions, " "))
}

// ParseStringList decodes a Python-style stringified list cell, e.g.
// ["a", 'b'] or ['it\'s']. Malformed cells degrade to a single-element list
// holding the raw cell so a bad row never poisons the whole read.
func ParseStringList(cell string) []string {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}

	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return []string{cell}
	}

	s = s[1 : len(s)-1]
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	items := make([]string, 0, 8)
	var cur strings.Builder
	var quote byte
	inString := false
	escaped := false
	valid := true

	for i := 0; i < len(s); i++ {
		c := s[i]

		if !inString {
			switch c {
			case '\'', '"':
				inString = true
				quote = c
			case ',', ' ', '\t', '\n':
				// separators between items
			default:
				// unquoted garbage
				valid = false
			}
			continue
		}

		if escaped {
			cur.WriteByte(c)
			escaped = false
			continue
		}

		switch c {
		case '\\':
			escaped = true
		case quote:
			inString = false
			items = append(items, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}

	if !valid || inString {
		return []string{cell}
	}

	return items
}

// FormatStringList is the inverse of ParseStringList, producing the cell
// format used by the upstream dataset so scraped rows match its layout.
func FormatStringList(items []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(item))
	}
	b.WriteByte(']')
	return b.String()
}
