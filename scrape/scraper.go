package scrape

import (
	"context"
	"net/url"

	"github.com/jamestannner/NeuralNourishment/document"
)

// Scraper fetches a page and returns it as a document.
type Scraper interface {
	Scrape(ctx context.Context, url *url.URL) (*document.Document, error)
}
