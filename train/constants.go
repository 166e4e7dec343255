// Package train prepares tokenized training shards for the downstream
// fine-tuning notebooks. The network itself is trained outside this module;
// Go owns everything up to the tensor boundary.
package train

// Data
const (
	// BatchSize is the batch size the notebooks train on.
	BatchSize = 64
	// SeqLen is the length of training sequences in tokens, aka the context size.
	SeqLen = 128
)

// Model
const (
	EmbedDim       = 256
	FeedForwardDim = 128
	NumHeads       = 3
	NumLayers      = 2
	// VocabSize limits the parameter count of the model.
	VocabSize = 2048
)

// Training
const (
	Epochs = 3
	// ValFraction is the validation share of the train/validation split.
	ValFraction = 0.2
	// DefaultSeed seeds the split shuffle so shards are reproducible.
	DefaultSeed = 42
)

// Inference
const NumTokensToGenerate = 80
