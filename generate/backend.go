// Package generate produces recipe text from ingredient lists through a
// hosted model. Local training output stays in the notebooks; this is the
// generation surface of the toolchain.
package generate

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jamestannner/NeuralNourishment/log"
	"github.com/jamestannner/NeuralNourishment/prompt"
	"github.com/jamestannner/NeuralNourishment/train"
)

// RecipeBackend is the generation interface used by the CLI.
type RecipeBackend interface {
	// Generate writes a recipe using the given ingredients.
	Generate(ctx context.Context, ingredients []string) (string, error)
}

// Backend generates recipes with the OpenAI chat completions API.
type Backend struct {
	log zerolog.Logger

	client *openai.Client
	model  openai.ChatModel

	maxTokens int64
}

type Option func(*Backend)

// WithMaxTokens overrides the default generation budget.
func WithMaxTokens(n int64) Option {
	return func(b *Backend) {
		b.maxTokens = n
	}
}

func NewBackend(apiKey string, model openai.ChatModel, opts ...Option) *Backend {
	b := &Backend{
		log:       log.NewLogger("generate"),
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: train.NumTokensToGenerate,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *Backend) Generate(ctx context.Context, ingredients []string) (string, error) {
	if len(ingredients) == 0 {
		return "", errors.New("no ingredients given")
	}

	start := time.Now()
	defer func() {
		b.log.Debug().Dur("duration", time.Since(start)).Msg("Generation finished")
	}()

	b.log.Info().Int("ingredients", len(ingredients)).Str("model", b.model).Msg("Generating recipe")

	completion, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.RECIPE_PROMPT_INSTRUCTIONS),
			openai.UserMessage(prompt.CreateRecipePrompt(ingredients)),
		}),
		Model:     openai.F(b.model),
		MaxTokens: openai.Int(b.maxTokens),
	})

	if err != nil {
		return "", errors.Wrap(err, "failed to create completion")
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
