package scrape

import (
	"context"
	"net/url"
	"time"

	"github.com/mendableai/firecrawl-go"
	"github.com/pkg/errors"

	"github.com/jamestannner/NeuralNourishment/document"
)

const FIRECRAWL_API = "https://api.firecrawl.dev"

// FirecrawlScraper scrapes pages through the Firecrawl API. Useful for recipe
// sites that render client-side, where a plain GET returns an empty shell.
type FirecrawlScraper struct {
	app *firecrawl.FirecrawlApp

	params *firecrawl.ScrapeParams
}

func NewFirecrawlScraper(key string) (*FirecrawlScraper, error) {
	app, err := firecrawl.NewFirecrawlApp(key, FIRECRAWL_API)
	if err != nil {
		return nil, err
	}

	timeout := 90_000

	defaultParams := &firecrawl.ScrapeParams{
		Formats: []string{"markdown", "links", "html"},
		Timeout: &timeout,
	}

	return &FirecrawlScraper{
		app:    app,
		params: defaultParams,
	}, nil
}

// Scrape scrapes the given URL and returns a Document. The Firecrawl client
// has no context support, so ctx only gates the call site.
func (s *FirecrawlScraper) Scrape(ctx context.Context, uri *url.URL) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fcDoc, err := s.app.ScrapeURL(uri.String(), s.params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scrape URL %s", uri.String())
	}

	md := fcDoc.Metadata

	var title string
	if md.OGTitle != nil {
		title = *md.OGTitle
	} else if md.Title != nil {
		title = *md.Title
	}

	description := new(string)
	if md.Description != nil {
		description = md.Description
	} else if md.OGDescription != nil {
		description = md.OGDescription
	}

	source := uri.String()
	if md.SourceURL != nil {
		source = *md.SourceURL
	}

	doc := &document.Document{
		Content: fcDoc.Markdown,
		HTML:    []byte(fcDoc.HTML),
		Metadata: document.Metadata{
			Title:         title,
			Description:   description,
			Source:        source,
			Type:          document.TypeArticle,
			SiteName:      md.OGSiteName,
			ProcessedTime: time.Now().Format(time.RFC3339),
			Links:         fcDoc.Links,
		},
	}

	doc.FindTitle()

	return doc, nil
}
