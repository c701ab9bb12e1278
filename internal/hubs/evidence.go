package hubs

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractEvidence parses a fetched page body into link-count evidence.
// Navigation links are anchors inside nav, header or footer chrome;
// article links are anchors inside article bodies and listings.
func ExtractEvidence(pageURL, body string) (Evidence, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Evidence{}, fmt.Errorf("parse HTML from %s: %w", pageURL, err)
	}

	ev := Evidence{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	ev.NavLinksCount = countAnchors(doc, "nav a, header a, footer a, [role='navigation'] a")
	ev.ArticleLinksCount = countAnchors(doc, "article a, main a, .article a, .story a")
	return ev, nil
}

func countAnchors(doc *goquery.Document, selector string) int {
	count := 0
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
			return
		}
		count++
	})
	return count
}
