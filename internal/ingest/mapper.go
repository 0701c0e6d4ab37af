package ingest

import (
	"strings"
	"time"

	"github.com/newsradar/newsradar/internal/config"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// mapItem converts a parsed feed item. Items without a link or title are
// dropped. A missing publish date falls back to the fetch time.
func mapItem(item *gofeed.Item, src config.FeedSource, lang string, fetchedAt time.Time) (RawArticle, bool) {
	if item == nil {
		return RawArticle{}, false
	}

	link := strings.TrimSpace(item.Link)
	title := htmlToText(item.Title)
	if link == "" || title == "" {
		return RawArticle{}, false
	}

	published := fetchedAt
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	}

	// prefer full content, fall back to the description
	text := htmlToText(item.Content)
	if text == "" {
		text = htmlToText(item.Description)
	}

	return RawArticle{
		URL:           link,
		Title:         title,
		SourceName:    src.Name,
		PublishedDate: published,
		Text:          text,
		Language:      lang,
	}, true
}

// htmlToText strips markup from feed HTML and collapses whitespace.
func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("p, br, div, li, h1, h2, h3, h4").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}
