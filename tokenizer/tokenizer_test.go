package tokenizer

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const trainingText = `Preheat oven to 350 degrees. In a large bowl, cream together the butter and sugar.
Beat in the eggs one at a time, then stir in the vanilla. Combine flour and baking soda,
and stir into the creamed mixture. Drop by rounded spoonfuls onto ungreased cookie sheets.
Bake for 8 to 10 minutes in the preheated oven. Allow cookies to cool on baking sheet for
5 minutes before removing to a wire rack to cool completely. Cream the butter, add the sugar,
and beat until light. Add the flour and mix until the dough comes together.`

func TestGetStats(t *testing.T) {
	counts := getStats([]int{1, 2, 3, 1, 2}, nil)

	expected := map[Pair]int{
		{1, 2}: 2,
		{2, 3}: 1,
		{3, 1}: 1,
	}

	if !reflect.DeepEqual(counts, expected) {
		t.Errorf("unexpected counts: %#v", counts)
	}
}

func TestMerge(t *testing.T) {
	got := merge([]int{1, 2, 3, 1, 2}, Pair{1, 2}, 4)

	if !reflect.DeepEqual(got, []int{4, 3, 4}) {
		t.Errorf("unexpected merge result: %v", got)
	}
}

func TestTrainRejectsSmallVocab(t *testing.T) {
	tok := New()
	if err := tok.Train("text", 255); err == nil {
		t.Error("expected error for vocab size below 256")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tok := New()
	if err := tok.Train(trainingText, 300); err != nil {
		t.Fatal(err)
	}

	tests := []string{
		"Mix the flour and sugar.",
		"This is new text that the model has never seen before!!",
		"1/2 c. firmly packed brown sugar",
		"unicode: crème brûlée 🍮",
	}

	for _, text := range tests {
		encoded := tok.Encode(text)
		decoded, err := tok.Decode(encoded)
		if err != nil {
			t.Fatal(err)
		}
		if decoded != text {
			t.Errorf("round trip mismatch: %q != %q", decoded, text)
		}
	}
}

func TestTrainCompresses(t *testing.T) {
	tok := New()
	if err := tok.Train(trainingText, 512); err != nil {
		t.Fatal(err)
	}

	text := "the butter and the sugar"
	encoded := tok.Encode(text)
	if len(encoded) >= len(text) {
		t.Errorf("expected compression, got %d ids for %d bytes", len(encoded), len(text))
	}
}

func TestTrainDeterministic(t *testing.T) {
	a, b := New(), New()
	if err := a.Train(trainingText, 320); err != nil {
		t.Fatal(err)
	}
	if err := b.Train(trainingText, 320); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(a.merges, b.merges) {
		t.Error("training is not deterministic")
	}
}

func TestSpecialTokens(t *testing.T) {
	tok := New()
	if err := tok.Train(trainingText, 300); err != nil {
		t.Fatal(err)
	}

	special := map[string]int{
		"<|recipe_start|>": 2046,
		"<|recipe_end|>":   2047,
	}
	if err := tok.RegisterSpecialTokens(special); err != nil {
		t.Fatal(err)
	}

	text := "<|recipe_start|> Pancakes <|recipe_end|>"
	encoded := tok.Encode(text)

	if encoded[0] != 2046 {
		t.Errorf("expected start token id first, got %d", encoded[0])
	}
	if encoded[len(encoded)-1] != 2047 {
		t.Errorf("expected end token id last, got %d", encoded[len(encoded)-1])
	}

	decoded, err := tok.Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != text {
		t.Errorf("round trip mismatch: %q", decoded)
	}
}

func TestSpecialTokenCollision(t *testing.T) {
	tok := New()

	// id 100 is a base byte token
	if err := tok.RegisterSpecialTokens(map[string]int{"<|pad|>": 100}); err == nil {
		t.Error("expected collision error")
	}

	if err := tok.RegisterSpecialTokens(map[string]int{"<|pad|>": 2047, "<|oov|>": 2047}); err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestDecodeUnknownID(t *testing.T) {
	tok := New()

	if _, err := tok.Decode([]int{70000}); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestVocabSize(t *testing.T) {
	tok := New()
	if tok.VocabSize() != 256 {
		t.Errorf("unexpected base vocab size: %d", tok.VocabSize())
	}

	if err := tok.Train(trainingText, 300); err != nil {
		t.Fatal(err)
	}
	if tok.VocabSize() > 300 {
		t.Errorf("vocab size exceeds requested: %d", tok.VocabSize())
	}

	base := tok.VocabSize()
	if err := tok.RegisterSpecialTokens(map[string]int{"<|pad|>": 2047}); err != nil {
		t.Fatal(err)
	}
	if tok.VocabSize() != base+1 {
		t.Errorf("unexpected vocab size with special token: %d", tok.VocabSize())
	}
}

func TestMaxTokenID(t *testing.T) {
	tok := New()
	if tok.MaxTokenID() != 255 {
		t.Errorf("unexpected base max id: %d", tok.MaxTokenID())
	}

	if err := tok.Train(trainingText, 300); err != nil {
		t.Fatal(err)
	}
	trained := tok.MaxTokenID()
	if trained < 256 || trained > 299 {
		t.Errorf("unexpected trained max id: %d", trained)
	}

	if err := tok.RegisterSpecialTokens(map[string]int{"<|pad|>": 2047}); err != nil {
		t.Fatal(err)
	}
	if tok.MaxTokenID() != 2047 {
		t.Errorf("max id should follow the special token: %d", tok.MaxTokenID())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tok := New()
	if err := tok.Train(trainingText, 320); err != nil {
		t.Fatal(err)
	}
	if err := tok.RegisterSpecialTokens(map[string]int{"<|recipe_start|>": 2045, "<|recipe_end|>": 2046}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "vocab.json")
	if err := tok.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	text := "<|recipe_start|> Mix the butter and sugar. <|recipe_end|>"
	if !reflect.DeepEqual(tok.Encode(text), loaded.Encode(text)) {
		t.Error("loaded tokenizer encodes differently")
	}
	if loaded.VocabSize() != tok.VocabSize() {
		t.Errorf("vocab size mismatch: %d != %d", loaded.VocabSize(), tok.VocabSize())
	}
}

func TestSplitChunks(t *testing.T) {
	tok := New()

	chunks := tok.splitChunks("Mix the flour, don't overwork it!")

	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	if strings.Join(chunks, "") != "Mix the flour, don't overwork it!" {
		t.Errorf("chunks lose text: %#v", chunks)
	}
}
