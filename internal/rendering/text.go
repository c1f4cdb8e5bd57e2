package rendering

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/resume-builder/internal/db"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// blockTags end a line of text
const blockTags = "h1, h2, h3, h4, p, li, div, section, article, header, tr"

// PlainText extracts readable text from rendered résumé markup. Scripts and
// styles are dropped and block elements become line breaks.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &RenderError{Message: "failed to parse rendered HTML", Cause: err}
	}

	doc.Find("script, style, head, img").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockTags).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
		s.SetText("\n" + strings.ToUpper(strings.TrimSpace(s.Text())) + "\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Find("body").Text(), "\n") {
		lines = append(lines, strings.Join(strings.Fields(line), " "))
	}
	text := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text) + "\n", nil
}

// RenderText renders the résumé and returns its plain-text form
func (r *Registry) RenderText(g *db.ResumeGraph) (string, error) {
	html, err := r.Render(g)
	if err != nil {
		return "", err
	}
	text, err := PlainText(html)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}
