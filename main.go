package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/rs/zerolog"

	"github.com/jamestannner/NeuralNourishment/cache"
	"github.com/jamestannner/NeuralNourishment/corpus"
	"github.com/jamestannner/NeuralNourishment/dataset"
	"github.com/jamestannner/NeuralNourishment/generate"
	"github.com/jamestannner/NeuralNourishment/log"
	"github.com/jamestannner/NeuralNourishment/scrape"
	"github.com/jamestannner/NeuralNourishment/spider"
	"github.com/jamestannner/NeuralNourishment/store"
	"github.com/jamestannner/NeuralNourishment/tokenizer"
	"github.com/jamestannner/NeuralNourishment/train"
	"github.com/jamestannner/NeuralNourishment/util"
)

const OPENAI_MODEL = openai.ChatModelGPT4oMini

const usageText = `Usage: nourish <command> [flags]

Commands:
  setup     download and extract the RecipeNLG dataset
  stats     print corpus statistics
  train     train the BPE tokenizer and write vocab.json
  encode    encode text with a trained tokenizer
  decode    decode token ids with a trained tokenizer
  prepare   write tokenized training shards
  generate  generate a recipe from ingredients
  scrape    scrape recipe pages into the scraped CSV
`

func main() {
	// .env is optional; real environments set variables directly
	godotenv.Load()

	log := log.NewLogger("main")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "setup":
		err = runSetup(ctx, os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "train":
		err = runTrain(os.Args[2:])
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "prepare":
		err = runPrepare(ctx, os.Args[2:])
	case "generate":
		err = runGenerate(ctx, os.Args[2:])
	case "scrape":
		err = runScrape(ctx, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Fprint(os.Stderr, usageText)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usageText)
		os.Exit(2)
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("Command failed")
	}
}

func dataDirFlag(fs *flag.FlagSet) *string {
	return fs.String("data-dir", ".", "Directory holding the dataset, vocabulary and shards.")
}

func runSetup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	dataDir := dataDirFlag(fs)
	rawURL := fs.String("url", "", "Override the dataset download URL.")
	keep := fs.Bool("keep-archive", false, "Keep the archive after extraction.")
	fs.Parse(args)

	dir := os.ExpandEnv(*dataDir)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	m, err := dataset.LoadManifest(filepath.Join(dir, dataset.ManifestFile))
	if err != nil {
		return err
	}
	if *rawURL != "" {
		m.URL = *rawURL
	}

	fetcher := dataset.NewFetcher(store.NewFileStore(dir))
	return fetcher.Setup(ctx, m, dataset.SetupOptions{KeepArchive: *keep})
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dataDir := dataDirFlag(fs)
	minLen := fs.Int("min-len", corpus.MinStringLen, "Minimum record length in bytes. Zero disables the filter.")
	fs.Parse(args)

	r, closer, err := openDataset(*dataDir, corpus.WithMinLen(*minLen))
	if err != nil {
		return err
	}
	defer closer.Close()

	stats, err := corpus.Build(r, io.Discard, corpus.ModeIngredients)
	if err != nil {
		return err
	}

	fmt.Printf("records:        %d\n", stats.Records)
	fmt.Printf("skipped:        %d\n", stats.Skipped)
	fmt.Printf("corpus size:    %s\n", util.FormatBytes(stats.Bytes))
	fmt.Printf("distinct chars: %d\n", stats.DistinctChars)
	return nil
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	dataDir := dataDirFlag(fs)
	vocabSize := fs.Int("vocab-size", train.VocabSize, "Target vocabulary size, including special tokens.")
	mode := fs.String("mode", corpus.ModeDocuments, "Corpus mode: ingredients or documents.")
	limit := fs.Int("limit", 50_000, "Number of records to train on. Zero uses the full dataset.")
	fs.Parse(args)

	logger := log.NewLogger("main")

	text, err := buildCorpus(*dataDir, *mode, *limit, logger)
	if err != nil {
		return err
	}

	tok := tokenizer.New()
	special := corpus.SpecialTokens(*vocabSize)

	logger.Info().Int("vocabSize", *vocabSize).Int("bytes", len(text)).Msg("Training tokenizer")

	if err := tok.Train(text, *vocabSize-len(special)); err != nil {
		return err
	}
	if err := tok.RegisterSpecialTokens(special); err != nil {
		return err
	}

	path := filepath.Join(os.ExpandEnv(*dataDir), tokenizer.DefaultVocabFile)
	if err := tok.Save(path); err != nil {
		return err
	}

	logger.Info().Str("vocab", path).Int("size", tok.VocabSize()).Msg("Tokenizer trained")
	return nil
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	dataDir := dataDirFlag(fs)
	fs.Parse(args)

	tok, err := loadTokenizer(*dataDir)
	if err != nil {
		return err
	}

	ids := tok.Encode(strings.Join(fs.Args(), " "))
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.Itoa(id)
	}
	fmt.Println(strings.Join(out, " "))
	return nil
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	dataDir := dataDirFlag(fs)
	fs.Parse(args)

	tok, err := loadTokenizer(*dataDir)
	if err != nil {
		return err
	}

	ids := make([]int, 0, fs.NArg())
	for _, arg := range fs.Args() {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid token id %q", arg)
		}
		ids = append(ids, id)
	}

	text, err := tok.Decode(ids)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func runPrepare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prepare", flag.ExitOnError)
	dataDir := dataDirFlag(fs)
	seqLen := fs.Int("seq-len", train.SeqLen, "Sequence length in tokens.")
	stride := fs.Int("stride", 1, "Window stride in tokens.")
	seed := fs.Int64("seed", train.DefaultSeed, "Shuffle seed for the train/validation split.")
	mode := fs.String("mode", corpus.ModeDocuments, "Corpus mode: ingredients or documents.")
	limit := fs.Int("limit", 0, "Number of records to prepare. Zero uses the full dataset.")
	fs.Parse(args)

	logger := log.NewLogger("main")

	tok, err := loadTokenizer(*dataDir)
	if err != nil {
		return err
	}

	text, err := buildCorpus(*dataDir, *mode, *limit, logger)
	if err != nil {
		return err
	}

	cfg := train.DefaultConfig(filepath.Join(os.ExpandEnv(*dataDir), train.ShardDir))
	cfg.SeqLen = *seqLen
	cfg.Stride = *stride
	cfg.Seed = *seed

	summary, err := train.NewPreparer(tok).Prepare(ctx, text, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("train sequences: %d\nval sequences:   %d\ntokens:          %d\n", summary.Train, summary.Val, summary.Tokens)
	return nil
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	ingredients := fs.String("ingredients", "", "Comma-separated ingredient list.")
	model := fs.String("model", OPENAI_MODEL, "Model to generate with.")
	maxTokens := fs.Int64("max-tokens", train.NumTokensToGenerate, "Generation budget in tokens.")
	fs.Parse(args)

	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		panic("OPENAI_API_KEY is not set")
	}

	var list []string
	for _, ing := range strings.Split(*ingredients, ",") {
		if ing = strings.TrimSpace(ing); ing != "" {
			list = append(list, ing)
		}
	}

	backend := generate.NewBackend(key, *model, generate.WithMaxTokens(*maxTokens))

	recipe, err := backend.Generate(ctx, list)
	if err != nil {
		return err
	}

	fmt.Println(recipe)
	return nil
}

func runScrape(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	dataDir := dataDirFlag(fs)
	delay := fs.Duration("delay", 300*time.Millisecond, "Politeness delay between requests.")
	concurrency := fs.Int("concurrency", spider.DefaultConcurrency, "Number of in-flight scrapes.")
	useFirecrawl := fs.Bool("firecrawl", false, "Scrape through the Firecrawl API (needs FIRECRAWL_API_KEY).")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("no URLs given")
	}

	urls := make([]*url.URL, 0, fs.NArg())
	for _, raw := range fs.Args() {
		uri, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid URL %q: %w", raw, err)
		}
		urls = append(urls, uri)
	}

	dir := os.ExpandEnv(*dataDir)
	localStore := store.NewFileStore(dir)

	var scraper scrape.Scraper = scrape.NewHTTPScraper()
	if *useFirecrawl {
		key := os.Getenv("FIRECRAWL_API_KEY")
		if key == "" {
			panic("FIRECRAWL_API_KEY is not set")
		}
		fc, err := scrape.NewFirecrawlScraper(key)
		if err != nil {
			return err
		}
		scraper = fc
	}

	seen, err := cache.NewSeenCache(filepath.Join(dir, "spider.db"))
	if err != nil {
		return err
	}
	defer seen.Close()

	writer, err := spider.NewWriter(filepath.Join(dir, spider.ScrapedDir, spider.ScrapedCSV))
	if err != nil {
		return err
	}
	defer writer.Close()

	s := spider.New(scraper, seen, localStore, writer, spider.WithDelay(*delay), spider.WithConcurrency(*concurrency))

	result, err := s.Crawl(ctx, urls)
	if err != nil {
		return err
	}

	fmt.Printf("scraped: %d\nskipped: %d\nfailed:  %d\n", result.Scraped, result.Skipped, result.Failed)
	return nil
}

func loadTokenizer(dataDir string) (*tokenizer.Tokenizer, error) {
	return tokenizer.Load(filepath.Join(os.ExpandEnv(dataDir), tokenizer.DefaultVocabFile))
}

func openDataset(dataDir string, opts ...corpus.ReaderOption) (*corpus.Reader, io.Closer, error) {
	dir := os.ExpandEnv(dataDir)
	path := filepath.Join(dir, dataset.DefaultDir, dataset.DefaultCSV)

	if m, err := dataset.LoadManifest(filepath.Join(dir, dataset.ManifestFile)); err == nil {
		path = filepath.Join(dir, m.Dir, m.CSV)
	}

	return corpus.Open(path, opts...)
}

// buildCorpus reads up to limit records and renders them as corpus text.
func buildCorpus(dataDir, mode string, limit int, logger zerolog.Logger) (string, error) {
	r, closer, err := openDataset(dataDir, corpus.WithLimit(limit))
	if err != nil {
		return "", err
	}
	defer closer.Close()

	var b strings.Builder
	stats, err := corpus.Build(r, &b, mode)
	if err != nil {
		return "", err
	}

	logger.Info().Int("records", stats.Records).Str("size", util.FormatBytes(stats.Bytes)).Msg("Corpus built")
	return b.String(), nil
}
