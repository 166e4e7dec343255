package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

type Type = string

const (
	TypeRecipe  Type = "recipe"
	TypeArticle Type = "article"
)

// Metadata is the YAML front matter attached to archived pages.
type Metadata struct {
	Title         string   `yaml:"title"`
	Description   *string  `yaml:"description,omitempty"`
	Source        string   `yaml:"source"`
	Type          Type     `yaml:"type"`
	SiteName      *string  `yaml:"siteName,omitempty"`
	ProcessedTime string   `yaml:"processedTime"`
	Links         []string `yaml:"links,omitempty"`
}

// Document is a scraped page: its markdown rendering, the raw HTML when the
// scraper had it, and metadata.
type Document struct {
	// Content is the markdown content of the scraped page.
	Content string
	// HTML is the raw page markup. Empty for scrapers that only return markdown.
	HTML []byte
	// Metadata about the document.
	Metadata Metadata
}

func (d *Document) HasTitle() bool {
	return d.Metadata.Title != ""
}

// FindTitle returns the document title, falling back to the first level-one
// markdown heading when metadata carries none.
func (d *Document) FindTitle() string {
	if d.Metadata.Title != "" {
		return d.Metadata.Title
	}

	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	content := []byte(d.Content)
	reader := text.NewReader(content)
	doc := md.Parser().Parse(reader)

	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if heading, ok := n.(*ast.Heading); ok && entering && heading.Level == 1 {
			var titleBuilder strings.Builder
			for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
				if text, ok := child.(*ast.Text); ok {
					titleBuilder.Write(text.Segment.Value(content))
				}
			}
			title = titleBuilder.String()
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	d.Metadata.Title = title
	return title
}

// ToMarkdown renders the document with its metadata as YAML front matter.
// It returns the archive filename and the markdown content.
func (d *Document) ToMarkdown() (string, string, error) {
	d.FindTitle()

	var builder strings.Builder
	frontMatter, err := yaml.Marshal(d.Metadata)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal metadata to YAML")
	}

	builder.WriteString("---\n")
	builder.Write(frontMatter)
	builder.WriteString("---\n")
	builder.WriteString(d.Content)

	name := SanitizeFileName(d.Metadata.Title)
	if name == "" {
		// A bare ".md" would be hidden and every titleless page would
		// overwrite it.
		sum := sha256.Sum256([]byte(d.Metadata.Source))
		name = "untitled-" + hex.EncodeToString(sum[:6])
	}

	return name + ".md", builder.String(), nil
}

// SanitizeFileName strips characters that are unsafe in file names.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c == '/' || c == '\\' || c == ':' || c == '*' || c == '?' || c == '"' || c == '<' || c == '>' || c == '|':
			b.WriteByte('-')
		case c < 0x20:
			b.WriteByte('-')
		default:
			b.WriteRune(c)
		}
	}
	return strings.Trim(b.String(), " .")
}
