package train

import (
	"context"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/jamestannner/NeuralNourishment/log"
	"github.com/jamestannner/NeuralNourishment/tokenizer"
)

const (
	// ShardDir is the output directory name inside the data directory.
	ShardDir = "shards"

	TrainShard  = "train.bin"
	ValShard    = "val.bin"
	SidecarFile = "meta.yaml"
)

// Config tunes shard preparation.
type Config struct {
	// SeqLen is the sequence length in tokens. Each stored sequence carries
	// one extra token, the next-token target.
	SeqLen int
	// Stride is the window step. Stride 1 reproduces the dense windowing of
	// the character-level model; stride SeqLen gives disjoint shards.
	Stride int
	// Seed seeds the shuffle before the train/validation split.
	Seed int64
	// ValFraction is the validation share, (0,1).
	ValFraction float64
	// OutDir is the shard output directory.
	OutDir string
}

// DefaultConfig returns the shard configuration used by the notebooks.
func DefaultConfig(outDir string) Config {
	return Config{
		SeqLen:      SeqLen,
		Stride:      1,
		Seed:        DefaultSeed,
		ValFraction: ValFraction,
		OutDir:      outDir,
	}
}

// Summary reports what a preparation run produced.
type Summary struct {
	SeqLen    int   `yaml:"seq_len"`
	Stride    int   `yaml:"stride"`
	Seed      int64 `yaml:"seed"`
	VocabSize int   `yaml:"vocab_size"`
	Tokens    int   `yaml:"tokens"`
	Train     int   `yaml:"train_sequences"`
	Val       int   `yaml:"val_sequences"`
}

// Preparer encodes corpus text and writes training shards.
type Preparer struct {
	log zerolog.Logger
	tok *tokenizer.Tokenizer
}

func NewPreparer(tok *tokenizer.Tokenizer) *Preparer {
	return &Preparer{
		log: log.NewLogger("train"),
		tok: tok,
	}
}

// Prepare tokenizes text, windows it into SeqLen+1-token sequences, splits
// them train/validation with a seeded shuffle, and writes both shards plus a
// YAML sidecar. Token ids are stored little-endian uint16, so the vocabulary
// must fit in 16 bits.
func (p *Preparer) Prepare(ctx context.Context, text string, cfg Config) (*Summary, error) {
	if cfg.SeqLen <= 0 {
		return nil, errors.New("sequence length must be positive")
	}
	if cfg.Stride <= 0 {
		return nil, errors.New("stride must be positive")
	}
	if cfg.ValFraction <= 0 || cfg.ValFraction >= 1 {
		return nil, errors.New("validation fraction must be in (0, 1)")
	}
	if max := p.tok.MaxTokenID(); max >= 1<<16 {
		return nil, errors.Errorf("token id %d does not fit in uint16 shards", max)
	}

	p.log.Info().Int("seqLen", cfg.SeqLen).Int("stride", cfg.Stride).Msg("Encoding corpus")

	ids := p.tok.Encode(text)
	sequences := windows(ids, cfg.SeqLen, cfg.Stride)
	if len(sequences) == 0 {
		return nil, errors.Errorf("corpus too short: %d tokens for sequence length %d", len(ids), cfg.SeqLen)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	rng.Shuffle(len(sequences), func(i, j int) {
		sequences[i], sequences[j] = sequences[j], sequences[i]
	})

	numVal := int(float64(len(sequences)) * cfg.ValFraction)
	val, train := sequences[:numVal], sequences[numVal:]

	if err := os.MkdirAll(cfg.OutDir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "failed to create shard directory")
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return writeShard(filepath.Join(cfg.OutDir, TrainShard), train)
	})
	eg.Go(func() error {
		return writeShard(filepath.Join(cfg.OutDir, ValShard), val)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{
		SeqLen:    cfg.SeqLen,
		Stride:    cfg.Stride,
		Seed:      cfg.Seed,
		VocabSize: p.tok.VocabSize(),
		Tokens:    len(ids),
		Train:     len(train),
		Val:       len(val),
	}

	if err := writeSidecar(filepath.Join(cfg.OutDir, SidecarFile), summary); err != nil {
		return nil, err
	}

	p.log.Info().Int("train", summary.Train).Int("val", summary.Val).Int("tokens", summary.Tokens).Msg("Shards written")

	return summary, nil
}

// windows cuts ids into overlapping sequences of seqLen input tokens plus
// one target token.
func windows(ids []int, seqLen, stride int) [][]int {
	if len(ids) <= seqLen {
		return nil
	}

	sequences := make([][]int, 0, (len(ids)-seqLen)/stride+1)
	for i := 0; i+seqLen < len(ids); i += stride {
		seq := make([]int, seqLen+1)
		copy(seq, ids[i:i+seqLen+1])
		sequences = append(sequences, seq)
	}

	return sequences
}

func writeShard(path string, sequences [][]int) error {
	var payload []byte
	if len(sequences) > 0 {
		payload = make([]byte, 0, len(sequences)*len(sequences[0])*2)
	}
	for _, seq := range sequences {
		for _, id := range seq {
			payload = binary.LittleEndian.AppendUint16(payload, uint16(id))
		}
	}

	if err := renameio.WriteFile(path, payload, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write shard %s", path)
	}

	return nil
}

func writeSidecar(path string, summary *Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "failed to marshal sidecar")
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write sidecar")
	}

	return nil
}

// ReadShard loads a shard written by Prepare, returning its sequences.
func ReadShard(path string, seqLen int) ([][]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read shard")
	}

	width := (seqLen + 1) * 2
	if len(data)%width != 0 {
		return nil, errors.Errorf("shard %s is not a multiple of sequence width %d", path, width)
	}

	sequences := make([][]int, 0, len(data)/width)
	for off := 0; off < len(data); off += width {
		seq := make([]int, seqLen+1)
		for i := range seq {
			seq[i] = int(binary.LittleEndian.Uint16(data[off+i*2:]))
		}
		sequences = append(sequences, seq)
	}

	return sequences, nil
}
