package spider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamestannner/NeuralNourishment/cache"
	"github.com/jamestannner/NeuralNourishment/corpus"
	"github.com/jamestannner/NeuralNourishment/document"
	"github.com/jamestannner/NeuralNourishment/scrape"
	"github.com/jamestannner/NeuralNourishment/store"
)

const recipePage = `<!DOCTYPE html>
<html>
<head>
<title>Old-Fashioned Pancakes</title>
<meta property="og:title" content="Old-Fashioned Pancakes">
</head>
<body>
<h1>Old-Fashioned Pancakes</h1>
<ul>
<li itemprop="recipeIngredient">1 1/2 cups all-purpose flour</li>
<li itemprop="recipeIngredient">1 egg</li>
<li itemprop="recipeIngredient">1 1/4 cups milk</li>
</ul>
<ol itemprop="recipeInstructions">
<li>Sift the flour.</li>
<li>Fry on a hot griddle.</li>
</ol>
</body>
</html>`

const bareArticle = `<!DOCTYPE html>
<html><head><title>About Us</title></head><body><p>No recipes here.</p></body></html>`

func newTestSpider(t *testing.T) (*Spider, string) {
	t.Helper()

	dataDir := t.TempDir()
	fs := store.NewFileStore(dataDir)

	seen, err := cache.NewSeenCache(filepath.Join(dataDir, "spider.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { seen.Close() })

	writer, err := NewWriter(filepath.Join(dataDir, ScrapedDir, ScrapedCSV))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { writer.Close() })

	return New(scrape.NewHTTPScraper(), seen, fs, writer, WithConcurrency(2)), dataDir
}

func serve(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestExtractRecipe(t *testing.T) {
	record, err := ExtractRecipe(testDocument(recipePage), "https://example.com/pancakes")
	if err != nil {
		t.Fatal(err)
	}

	if record.Title != "Old-Fashioned Pancakes" {
		t.Errorf("unexpected title: %s", record.Title)
	}
	if len(record.Ingredients) != 3 {
		t.Errorf("unexpected ingredients: %#v", record.Ingredients)
	}
	if len(record.Directions) != 2 {
		t.Errorf("unexpected directions: %#v", record.Directions)
	}
	if record.Source != "Scraped" {
		t.Errorf("unexpected source: %s", record.Source)
	}
}

func TestExtractRecipeNoRecipe(t *testing.T) {
	if _, err := ExtractRecipe(testDocument(bareArticle), "https://example.com/about"); err == nil {
		t.Error("expected error for page without recipe markup")
	}
}

func TestCrawl(t *testing.T) {
	server := serve(t, map[string]string{
		"/pancakes": recipePage,
		"/about":    bareArticle,
	})

	s, dataDir := newTestSpider(t)

	urls := parseURLs(t, server.URL+"/pancakes", server.URL+"/about")

	result, err := s.Crawl(context.Background(), urls)
	if err != nil {
		t.Fatal(err)
	}

	if result.Scraped != 1 {
		t.Errorf("unexpected scraped count: %d", result.Scraped)
	}
	// the recipe-less page counts as failed, not fatal
	if result.Failed != 1 {
		t.Errorf("unexpected failed count: %d", result.Failed)
	}

	// archive written with front matter
	archive, err := os.ReadFile(filepath.Join(dataDir, ScrapedDir, "Old-Fashioned Pancakes.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(archive), "---\n") {
		t.Error("archive missing front matter")
	}

	// scraped row readable by the corpus reader
	s.writer.Close()
	r, closer, err := corpus.Open(filepath.Join(dataDir, ScrapedDir, ScrapedCSV), corpus.WithMinLen(0))
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	record, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if record.Title != "Old-Fashioned Pancakes" {
		t.Errorf("unexpected title in scraped CSV: %s", record.Title)
	}
	if len(record.Ingredients) != 3 {
		t.Errorf("unexpected ingredients in scraped CSV: %#v", record.Ingredients)
	}
}

func TestCrawlSkipsSeen(t *testing.T) {
	server := serve(t, map[string]string{"/pancakes": recipePage})

	s, _ := newTestSpider(t)
	urls := parseURLs(t, server.URL+"/pancakes")

	if _, err := s.Crawl(context.Background(), urls); err != nil {
		t.Fatal(err)
	}

	result, err := s.Crawl(context.Background(), urls)
	if err != nil {
		t.Fatal(err)
	}

	if result.Skipped != 1 {
		t.Errorf("expected skip on second crawl, got %+v", result)
	}
	if result.Scraped != 0 {
		t.Errorf("re-scraped a seen URL: %+v", result)
	}
}

func TestWriterContinuesIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), ScrapedCSV)

	w, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}

	record := &corpus.Record{Title: "A", Ingredients: []string{"x"}, Directions: []string{"y"}, Source: "Scraped"}

	id, err := w.Append(record)
	if err != nil {
		t.Fatal(err)
	}
	if id != 0 {
		t.Errorf("unexpected first id: %d", id)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w, err = NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	id, err = w.Append(record)
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Errorf("id sequence not continued: %d", id)
	}
}

func testDocument(page string) *document.Document {
	return &document.Document{HTML: []byte(page)}
}

func parseURLs(t *testing.T, raw ...string) []*url.URL {
	t.Helper()

	urls := make([]*url.URL, len(raw))
	for i, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			t.Fatal(err)
		}
		urls[i] = u
	}
	return urls
}
