package scrape

import (
	"bytes"
	"context"
	"net/url"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/jamestannner/NeuralNourishment/document"
	"github.com/jamestannner/NeuralNourishment/log"
	"github.com/jamestannner/NeuralNourishment/util"
)

// HTTPScraper fetches pages directly and converts them to markdown locally.
// It keeps the raw HTML on the document so recipe fields can be extracted
// from the markup.
type HTTPScraper struct {
	log zerolog.Logger
}

func NewHTTPScraper() *HTTPScraper {
	return &HTTPScraper{
		log: log.NewLogger("scrape"),
	}
}

func (s *HTTPScraper) Scrape(ctx context.Context, uri *url.URL) (*document.Document, error) {
	body, ct, err := util.DownloadContent(ctx, uri)
	if err != nil {
		return nil, err
	}

	if ct != "text/html" {
		return nil, errors.Errorf("unsupported content type: %s", ct)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse HTML")
	}

	title, _ := extractTitle(doc)

	mdBody, err := md.ConvertReader(bytes.NewReader(body), converter.WithDomain(uri.Host))
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert HTML to Markdown")
	}

	return &document.Document{
		Content: string(mdBody),
		HTML:    body,
		Metadata: document.Metadata{
			Title:         title,
			Source:        uri.String(),
			Type:          document.TypeArticle,
			ProcessedTime: time.Now().Format(time.RFC3339),
		},
	}, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func extractTitle(n *html.Node) (string, bool) {
	if isTitleElement(n) && n.FirstChild != nil {
		return document.SanitizeFileName(n.FirstChild.Data), true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, ok := extractTitle(c); ok {
			return result, ok
		}
	}

	return "", false
}
