package document

import (
	"strings"
	"testing"
)

func TestFindTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "empty",
			content:  "",
			expected: "",
		},
		{
			name:     "simple",
			content:  "# Pancakes\n",
			expected: "Pancakes",
		},
		{
			name:     "empty title",
			content:  "#\n",
			expected: "",
		},
		{
			name:     "no title",
			content:  "content",
			expected: "",
		},
		{
			name:     "multiple titles",
			content:  "# Title 1\n# Title 2\n",
			expected: "Title 1",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := &Document{
				Content: test.content,
			}

			title := doc.FindTitle()
			if title != test.expected {
				t.Errorf("unexpected title: %s", title)
			}
		})
	}
}

func TestToMarkdown(t *testing.T) {
	doc := &Document{
		Content: "# Pancakes\n\nMix and fry.",
		Metadata: Metadata{
			Source: "https://example.com/pancakes",
			Type:   TypeRecipe,
		},
	}

	name, content, err := doc.ToMarkdown()
	if err != nil {
		t.Fatal(err)
	}

	if name != "Pancakes.md" {
		t.Errorf("unexpected file name: %s", name)
	}
	if !strings.HasPrefix(content, "---\n") {
		t.Error("missing front matter")
	}
	if !strings.Contains(content, "source: https://example.com/pancakes") {
		t.Errorf("front matter missing source:\n%s", content)
	}
	if !strings.Contains(content, "type: recipe") {
		t.Errorf("front matter missing type:\n%s", content)
	}
}

func TestToMarkdownUntitled(t *testing.T) {
	first := &Document{
		Content:  "no headings here",
		Metadata: Metadata{Source: "https://example.com/a", Type: TypeArticle},
	}
	second := &Document{
		Content:  "still no headings",
		Metadata: Metadata{Source: "https://example.com/b", Type: TypeArticle},
	}

	firstName, _, err := first.ToMarkdown()
	if err != nil {
		t.Fatal(err)
	}
	secondName, _, err := second.ToMarkdown()
	if err != nil {
		t.Fatal(err)
	}

	if firstName == ".md" {
		t.Error("titleless page archived as a hidden file")
	}
	if !strings.HasPrefix(firstName, "untitled-") {
		t.Errorf("unexpected fallback name: %s", firstName)
	}
	if firstName == secondName {
		t.Errorf("titleless pages from different sources collide: %s", firstName)
	}
}

func TestSanitizeFileName(t *testing.T) {
	got := SanitizeFileName(`Grandma's "Best" Pie: part 1/2 `)

	if strings.ContainsAny(got, `/\:*?"<>|`) {
		t.Errorf("unsafe characters remain: %s", got)
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("trailing space remains: %q", got)
	}
}
