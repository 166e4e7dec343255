// Package tokenizer implements a byte-pair-encoding tokenizer with support
// for special tokens, used to divide the recipe corpus into training
// sequences. Text is pre-split with a GPT-style pattern so merges never
// cross word boundaries.
package tokenizer

import (
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// SplitPattern matches contractions, sequences of letters (words), individual
// digits, non-alphanumeric runs, line breaks, and trailing whitespace.
const SplitPattern = `'(?i:[sdmt]|ll|ve|re)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]|\s+(?!\S)|\s+`

// Pair is an adjacent token id pair.
type Pair struct {
	A, B int
}

type Tokenizer struct {
	pattern  *regexp2.Regexp
	compiled string

	// merges maps a pair to the id minted for it. Lower ids were merged
	// earlier and take precedence during encoding.
	merges map[Pair]int
	vocab  map[int][]byte

	specialTokens        map[string]int
	inverseSpecialTokens map[int]string
}

func New() *Tokenizer {
	t := &Tokenizer{
		compiled:             SplitPattern,
		pattern:              regexp2.MustCompile(SplitPattern, regexp2.None),
		merges:               make(map[Pair]int),
		specialTokens:        make(map[string]int),
		inverseSpecialTokens: make(map[int]string),
	}
	t.vocab = t.buildVocab()
	return t
}

// VocabSize returns the number of ids the tokenizer can produce, including
// special tokens.
func (t *Tokenizer) VocabSize() int {
	return len(t.vocab) + len(t.specialTokens)
}

// MaxTokenID returns the highest id the tokenizer can emit. Special tokens
// sit at the top of the configured id space, so this can exceed VocabSize
// when training stopped before minting every merge.
func (t *Tokenizer) MaxTokenID() int {
	max := 0
	for id := range t.vocab {
		if id > max {
			max = id
		}
	}
	for _, id := range t.specialTokens {
		if id > max {
			max = id
		}
	}
	return max
}

// Train learns vocabSize-256 merges from text by repeatedly replacing the
// most frequent adjacent pair with a newly minted token. Training is
// deterministic: ties are broken by the lowest pair.
func (t *Tokenizer) Train(text string, vocabSize int) error {
	if vocabSize < 256 {
		return errors.New("vocab size must be at least 256")
	}

	numMerges := vocabSize - 256

	chunks := t.splitChunks(text)
	ids := make([][]int, len(chunks))
	for i, chunk := range chunks {
		ids[i] = bytesToIDs([]byte(chunk))
	}

	merges := make(map[Pair]int, numMerges)
	vocab := make(map[int][]byte, vocabSize)
	for i := 0; i < 256; i++ {
		vocab[i] = []byte{byte(i)}
	}

	for i := 0; i < numMerges; i++ {
		stats := make(map[Pair]int)
		for _, chunkIDs := range ids {
			getStats(chunkIDs, stats)
		}

		pair, count := maxPair(stats)
		if count < 2 {
			// no pair repeats, nothing left to merge
			break
		}

		idx := 256 + i

		for j, chunkIDs := range ids {
			ids[j] = merge(chunkIDs, pair, idx)
		}

		merges[pair] = idx
		vocab[idx] = append(append([]byte{}, vocab[pair.A]...), vocab[pair.B]...)
	}

	t.merges = merges
	t.vocab = vocab

	return nil
}

// RegisterSpecialTokens registers literal strings that encode to fixed ids.
// Ids must not collide with each other or with merge ids.
func (t *Tokenizer) RegisterSpecialTokens(specialTokens map[string]int) error {
	inverse := make(map[int]string, len(specialTokens))
	for tok, id := range specialTokens {
		if _, ok := t.vocab[id]; ok {
			return errors.Errorf("special token %q id %d collides with vocab", tok, id)
		}
		if prev, ok := inverse[id]; ok {
			return errors.Errorf("special tokens %q and %q share id %d", tok, prev, id)
		}
		inverse[id] = tok
	}

	t.specialTokens = specialTokens
	t.inverseSpecialTokens = inverse

	return nil
}

// Encode converts text into token ids. Special token literals are split out
// first and encoded to their fixed ids; everything else goes through BPE.
func (t *Tokenizer) Encode(text string) []int {
	ids := make([]int, 0, len(text)/2)

	for _, part := range t.splitSpecial(text) {
		if id, ok := t.specialTokens[part]; ok {
			ids = append(ids, id)
			continue
		}

		for _, chunk := range t.splitChunks(part) {
			ids = append(ids, t.encodeChunk([]byte(chunk))...)
		}
	}

	return ids
}

// Decode converts token ids back into text. Unknown ids are an error.
func (t *Tokenizer) Decode(ids []int) (string, error) {
	var b strings.Builder

	for _, id := range ids {
		if part, ok := t.vocab[id]; ok {
			b.Write(part)
		} else if tok, ok := t.inverseSpecialTokens[id]; ok {
			b.WriteString(tok)
		} else {
			return "", errors.Errorf("unknown token id: %d", id)
		}
	}

	return b.String(), nil
}

func (t *Tokenizer) encodeChunk(chunk []byte) []int {
	ids := bytesToIDs(chunk)

	for len(ids) >= 2 {
		// find the pair with the lowest merge index
		stats := getStats(ids, nil)

		best := Pair{}
		bestRank := -1
		for pair := range stats {
			rank, ok := t.merges[pair]
			if !ok {
				continue
			}
			if bestRank == -1 || rank < bestRank {
				best = pair
				bestRank = rank
			}
		}

		if bestRank == -1 {
			// nothing else can be merged
			break
		}

		ids = merge(ids, best, bestRank)
	}

	return ids
}

// splitChunks divides text along the split pattern so merges stay inside
// word-like units.
func (t *Tokenizer) splitChunks(text string) []string {
	chunks := make([]string, 0, len(text)/4)

	m, err := t.pattern.FindStringMatch(text)
	for err == nil && m != nil {
		chunks = append(chunks, m.String())
		m, err = t.pattern.FindNextMatch(m)
	}

	return chunks
}

// splitSpecial splits text into runs of ordinary text and special token
// literals, preserving order.
func (t *Tokenizer) splitSpecial(text string) []string {
	if len(t.specialTokens) == 0 {
		return []string{text}
	}

	tokens := make([]string, 0, len(t.specialTokens))
	for tok := range t.specialTokens {
		tokens = append(tokens, tok)
	}
	// longest first so overlapping literals resolve consistently
	sort.Slice(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })

	parts := []string{}
	rest := text

	for rest != "" {
		next := -1
		var nextTok string
		for _, tok := range tokens {
			idx := strings.Index(rest, tok)
			if idx == -1 {
				continue
			}
			if next == -1 || idx < next {
				next = idx
				nextTok = tok
			}
		}

		if next == -1 {
			parts = append(parts, rest)
			break
		}

		if next > 0 {
			parts = append(parts, rest[:next])
		}
		parts = append(parts, nextTok)
		rest = rest[next+len(nextTok):]
	}

	return parts
}

func (t *Tokenizer) buildVocab() map[int][]byte {
	vocab := make(map[int][]byte, 256+len(t.merges))
	for i := 0; i < 256; i++ {
		vocab[i] = []byte{byte(i)}
	}

	// merges must be applied in mint order so compound tokens resolve
	type orderedMerge struct {
		pair Pair
		idx  int
	}
	ordered := make([]orderedMerge, 0, len(t.merges))
	for pair, idx := range t.merges {
		ordered = append(ordered, orderedMerge{pair, idx})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].idx < ordered[j].idx })

	for _, m := range ordered {
		vocab[m.idx] = append(append([]byte{}, vocab[m.pair.A]...), vocab[m.pair.B]...)
	}

	return vocab
}

// getStats counts adjacent pairs in ids, optionally accumulating into counts.
func getStats(ids []int, counts map[Pair]int) map[Pair]int {
	if counts == nil {
		counts = make(map[Pair]int)
	}
	for i := 0; i+1 < len(ids); i++ {
		counts[Pair{ids[i], ids[i+1]}]++
	}
	return counts
}

// merge replaces every adjacent occurrence of pair in ids with idx.
func merge(ids []int, pair Pair, idx int) []int {
	out := make([]int, 0, len(ids))
	for i := 0; i < len(ids); i++ {
		if i+1 < len(ids) && ids[i] == pair.A && ids[i+1] == pair.B {
			out = append(out, idx)
			i++
		} else {
			out = append(out, ids[i])
		}
	}
	return out
}

// maxPair returns the most frequent pair, breaking ties toward the lowest
// pair so training is reproducible across runs.
func maxPair(stats map[Pair]int) (Pair, int) {
	var best Pair
	bestCount := 0
	for pair, count := range stats {
		if count > bestCount {
			best = pair
			bestCount = count
			continue
		}
		if count == bestCount && bestCount > 0 {
			if pair.A < best.A || (pair.A == best.A && pair.B < best.B) {
				best = pair
			}
		}
	}
	return best, bestCount
}

func bytesToIDs(b []byte) []int {
	ids := make([]int, len(b))
	for i, c := range b {
		ids[i] = int(c)
	}
	return ids
}
