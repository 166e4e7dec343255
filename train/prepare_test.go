package train

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jamestannner/NeuralNourishment/tokenizer"
)

func trainedTokenizer(t *testing.T) *tokenizer.Tokenizer {
	t.Helper()

	tok := tokenizer.New()
	text := strings.Repeat("mix the flour and the sugar and the butter ", 20)
	if err := tok.Train(text, 280); err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestWindows(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6}

	tests := []struct {
		name     string
		seqLen   int
		stride   int
		expected [][]int
	}{
		{
			name:   "dense",
			seqLen: 3,
			stride: 1,
			expected: [][]int{
				{1, 2, 3, 4},
				{2, 3, 4, 5},
				{3, 4, 5, 6},
			},
		},
		{
			name:   "disjoint",
			seqLen: 2,
			stride: 2,
			expected: [][]int{
				{1, 2, 3},
				{3, 4, 5},
			},
		},
		{
			name:     "too short",
			seqLen:   6,
			stride:   1,
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := windows(ids, test.seqLen, test.stride)
			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("unexpected windows: %v", got)
			}
		})
	}
}

func TestPrepareWritesShards(t *testing.T) {
	tok := trainedTokenizer(t)
	p := NewPreparer(tok)

	outDir := t.TempDir()
	cfg := Config{
		SeqLen:      8,
		Stride:      1,
		Seed:        DefaultSeed,
		ValFraction: 0.2,
		OutDir:      outDir,
	}

	text := strings.Repeat("mix the flour and the sugar and the butter ", 10)
	summary, err := p.Prepare(context.Background(), text, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if summary.Train == 0 || summary.Val == 0 {
		t.Fatalf("empty split: %+v", summary)
	}

	train, err := ReadShard(filepath.Join(outDir, TrainShard), cfg.SeqLen)
	if err != nil {
		t.Fatal(err)
	}
	val, err := ReadShard(filepath.Join(outDir, ValShard), cfg.SeqLen)
	if err != nil {
		t.Fatal(err)
	}

	// sidecar counts must match payload
	if len(train) != summary.Train {
		t.Errorf("train shard has %d sequences, sidecar says %d", len(train), summary.Train)
	}
	if len(val) != summary.Val {
		t.Errorf("val shard has %d sequences, sidecar says %d", len(val), summary.Val)
	}

	// every sequence decodes back into corpus text
	decoded, err := tok.Decode(train[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, decoded) {
		t.Errorf("sequence decodes outside the corpus: %q", decoded)
	}
}

func TestPrepareDeterministic(t *testing.T) {
	tok := trainedTokenizer(t)
	text := strings.Repeat("mix the flour and the sugar ", 12)

	read := func(dir string) [][]int {
		p := NewPreparer(tok)
		cfg := Config{SeqLen: 8, Stride: 2, Seed: 7, ValFraction: 0.25, OutDir: dir}
		if _, err := p.Prepare(context.Background(), text, cfg); err != nil {
			t.Fatal(err)
		}
		sequences, err := ReadShard(filepath.Join(dir, TrainShard), 8)
		if err != nil {
			t.Fatal(err)
		}
		return sequences
	}

	a := read(t.TempDir())
	b := read(t.TempDir())

	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different shards")
	}
}

func TestPrepareValidation(t *testing.T) {
	p := NewPreparer(trainedTokenizer(t))

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero seq len", cfg: Config{SeqLen: 0, Stride: 1, ValFraction: 0.2}},
		{name: "zero stride", cfg: Config{SeqLen: 8, Stride: 0, ValFraction: 0.2}},
		{name: "bad fraction", cfg: Config{SeqLen: 8, Stride: 1, ValFraction: 1.5}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.cfg.OutDir = t.TempDir()
			if _, err := p.Prepare(context.Background(), "text", test.cfg); err == nil {
				t.Error("expected config error")
			}
		})
	}
}

func TestPrepareRejectsWideTokenIDs(t *testing.T) {
	tok := trainedTokenizer(t)
	if err := tok.RegisterSpecialTokens(map[string]int{
		"<|recipe_start|>": 99998,
		"<|recipe_end|>":   99999,
	}); err != nil {
		t.Fatal(err)
	}

	// The count still fits, but the top special token id does not.
	if tok.VocabSize() >= 1<<16 {
		t.Fatalf("vocab size should stay small: %d", tok.VocabSize())
	}

	p := NewPreparer(tok)
	cfg := DefaultConfig(t.TempDir())
	cfg.SeqLen = 8

	text := strings.Repeat("mix the flour and the sugar ", 10)
	if _, err := p.Prepare(context.Background(), text, cfg); err == nil {
		t.Error("expected error for token ids wider than uint16")
	}
}

func TestPrepareShortCorpus(t *testing.T) {
	p := NewPreparer(trainedTokenizer(t))

	cfg := DefaultConfig(t.TempDir())
	if _, err := p.Prepare(context.Background(), "tiny", cfg); err == nil {
		t.Error("expected error for corpus shorter than the sequence length")
	}
}
