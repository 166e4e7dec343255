package tokenizer

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/dlclark/regexp2"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// DefaultVocabFile is the vocabulary file name inside the data directory.
const DefaultVocabFile = "vocab.json"

const vocabVersion = 1

// vocabFile is the on-disk form of a trained tokenizer. Only merges and
// special tokens are stored; the byte-level vocab is rebuilt on load.
type vocabFile struct {
	Version       int            `json:"version"`
	Pattern       string         `json:"pattern"`
	Merges        [][3]int       `json:"merges"`
	SpecialTokens map[string]int `json:"special_tokens,omitempty"`
}

// Save writes the tokenizer's vocabulary atomically to path.
func (t *Tokenizer) Save(path string) error {
	merges := make([][3]int, 0, len(t.merges))
	for pair, idx := range t.merges {
		merges = append(merges, [3]int{pair.A, pair.B, idx})
	}
	sort.Slice(merges, func(i, j int) bool { return merges[i][2] < merges[j][2] })

	data, err := json.MarshalIndent(vocabFile{
		Version:       vocabVersion,
		Pattern:       t.compiled,
		Merges:        merges,
		SpecialTokens: t.specialTokens,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal vocab")
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write vocab file")
	}

	return nil
}

// Load reads a vocabulary file written by Save and returns a ready tokenizer.
func Load(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read vocab file")
	}

	var f vocabFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse vocab file")
	}

	if f.Version != vocabVersion {
		return nil, errors.Errorf("unsupported vocab version: %d", f.Version)
	}

	t := New()
	if f.Pattern != "" && f.Pattern != t.compiled {
		pattern, err := regexp2.Compile(f.Pattern, regexp2.None)
		if err != nil {
			return nil, errors.Wrap(err, "failed to compile vocab pattern")
		}
		t.compiled = f.Pattern
		t.pattern = pattern
	}

	t.merges = make(map[Pair]int, len(f.Merges))
	for _, m := range f.Merges {
		t.merges[Pair{m[0], m[1]}] = m[2]
	}
	t.vocab = t.buildVocab()

	if len(f.SpecialTokens) > 0 {
		if err := t.RegisterSpecialTokens(f.SpecialTokens); err != nil {
			return nil, err
		}
	}

	return t, nil
}
