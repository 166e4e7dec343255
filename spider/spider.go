// Package spider crawls recipe pages and appends them to the scraped CSV so
// locally gathered recipes can extend the corpus. Pages are archived as
// markdown with front matter, and a persistent seen-cache keeps crawls
// idempotent.
package spider

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jamestannner/NeuralNourishment/cache"
	"github.com/jamestannner/NeuralNourishment/document"
	"github.com/jamestannner/NeuralNourishment/log"
	"github.com/jamestannner/NeuralNourishment/scrape"
	"github.com/jamestannner/NeuralNourishment/store"
)

const DefaultConcurrency = 4

// Spider drives a scraper over a list of URLs.
type Spider struct {
	log zerolog.Logger

	scraper scrape.Scraper
	seen    *cache.SeenCache
	store   *store.FileStore
	writer  *Writer

	delay       time.Duration
	concurrency int
}

type Option func(*Spider)

// WithDelay sets the politeness delay between requests.
func WithDelay(d time.Duration) Option {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithConcurrency bounds the number of in-flight scrapes.
func WithConcurrency(n int) Option {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(scraper scrape.Scraper, seen *cache.SeenCache, fs *store.FileStore, writer *Writer, opts ...Option) *Spider {
	s := &Spider{
		log:         log.NewLogger("spider"),
		scraper:     scraper,
		seen:        seen,
		store:       fs,
		writer:      writer,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Result summarizes a crawl.
type Result struct {
	Scraped int
	Skipped int
	Failed  int
}

// Crawl scrapes each URL, archives the page, and appends extracted recipes
// to the scraped CSV. Already-seen URLs are skipped. Individual page
// failures are logged and counted, never fatal; only context cancellation
// aborts the crawl.
func (s *Spider) Crawl(ctx context.Context, urls []*url.URL) (*Result, error) {
	var mu sync.Mutex
	result := &Result{}

	var gate <-chan time.Time
	if s.delay > 0 {
		ticker := time.NewTicker(s.delay)
		defer ticker.Stop()
		gate = ticker.C
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)

	for _, uri := range urls {
		uri := uri
		eg.Go(func() error {
			if _, seen := s.seen.Seen(uri.String()); seen {
				s.log.Debug().Str("url", uri.String()).Msg("URL already scraped, skipping")
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}

			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			name, err := s.crawlOne(ctx, uri)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Error().Err(err).Str("url", uri.String()).Msg("Failed to scrape URL")
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			if err := s.seen.Mark(uri.String(), name); err != nil {
				return err
			}

			mu.Lock()
			result.Scraped++
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return result, err
	}

	s.log.Info().Int("scraped", result.Scraped).Int("skipped", result.Skipped).Int("failed", result.Failed).Msg("Crawl finished")

	return result, nil
}

func (s *Spider) crawlOne(ctx context.Context, uri *url.URL) (string, error) {
	doc, err := s.scraper.Scrape(ctx, uri)
	if err != nil {
		return "", err
	}

	record, err := ExtractRecipe(doc, uri.String())
	if err != nil {
		return "", err
	}

	doc.Metadata.Type = document.TypeRecipe
	if !doc.HasTitle() {
		doc.Metadata.Title = record.Title
	}

	name, content, err := doc.ToMarkdown()
	if err != nil {
		return "", err
	}

	archivePath := filepath.Join(ScrapedDir, name)
	if err := s.store.Store(archivePath, strings.NewReader(content)); err != nil {
		return "", err
	}

	id, err := s.writer.Append(record)
	if err != nil {
		return "", err
	}

	s.log.Info().Int("id", id).Str("title", record.Title).Str("archive", archivePath).Msg("Recipe scraped")

	return name, nil
}
