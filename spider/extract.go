package spider

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/jamestannner/NeuralNourishment/corpus"
	"github.com/jamestannner/NeuralNourishment/document"
)

// ErrNoRecipe is returned when a page has no extractable recipe markup.
var ErrNoRecipe = errors.New("no recipe found on page")

// ExtractRecipe pulls a recipe record out of a scraped page. It tries
// schema.org microdata first, then common ingredient/direction class names.
func ExtractRecipe(doc *document.Document, link string) (*corpus.Record, error) {
	if len(doc.HTML) == 0 {
		return nil, errors.New("document has no raw HTML")
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.HTML))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse page")
	}

	record := &corpus.Record{
		Title:       pageTitle(page, doc),
		Ingredients: selectTexts(page, `[itemprop="recipeIngredient"]`, `[itemprop="ingredients"]`, `.recipe-ingredient`, `.ingredient`),
		Directions:  selectTexts(page, `[itemprop="recipeInstructions"] li`, `[itemprop="recipeInstructions"]`, `.recipe-instruction`, `.instruction`, `.direction`),
		Link:        link,
		Source:      "Scraped",
	}

	if len(record.Ingredients) == 0 {
		return nil, ErrNoRecipe
	}

	return record, nil
}

func pageTitle(page *goquery.Document, doc *document.Document) string {
	if title, ok := page.Find(`meta[property="og:title"]`).Attr("content"); ok && title != "" {
		return strings.TrimSpace(title)
	}

	if title := strings.TrimSpace(page.Find("h1").First().Text()); title != "" {
		return title
	}

	return doc.FindTitle()
}

// selectTexts returns trimmed texts from the first selector that matches
// anything. Later selectors are fallbacks, not additions.
func selectTexts(page *goquery.Document, selectors ...string) []string {
	for _, selector := range selectors {
		var texts []string
		page.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.Join(strings.Fields(s.Text()), " ")
			if text != "" {
				texts = append(texts, text)
			}
		})

		if len(texts) > 0 {
			return texts
		}
	}

	return nil
}
