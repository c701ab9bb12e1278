package hubs

import "testing"

const hubPage = `<!DOCTYPE html>
<html>
<head><title> France - World News </title></head>
<body>
<nav>
  <a href="/news">News</a>
  <a href="/news/world">World</a>
  <a href="/news/world/france">France</a>
  <a href="#">Menu</a>
  <a href="javascript:void(0)">Toggle</a>
</nav>
<main>
  <article><a href="/news/world/france/article-1">Story one</a></article>
  <article><a href="/news/world/france/article-2">Story two</a></article>
</main>
<footer>
  <a href="/about">About</a>
</footer>
</body>
</html>`

func TestExtractEvidence(t *testing.T) {
	t.Parallel()

	ev, err := ExtractEvidence("https://bbc.co.uk/news/world/france", hubPage)
	if err != nil {
		t.Fatalf("ExtractEvidence: %v", err)
	}
	if ev.Title != "France - World News" {
		t.Fatalf("Title = %q", ev.Title)
	}
	// Three real nav anchors plus the footer one; the fragment and
	// javascript hrefs do not count.
	if ev.NavLinksCount != 4 {
		t.Fatalf("NavLinksCount = %d, want 4", ev.NavLinksCount)
	}
	if ev.ArticleLinksCount != 2 {
		t.Fatalf("ArticleLinksCount = %d, want 2", ev.ArticleLinksCount)
	}
}

func TestExtractEvidence_EmptyBody(t *testing.T) {
	t.Parallel()

	ev, err := ExtractEvidence("https://example.com/", "")
	if err != nil {
		t.Fatalf("ExtractEvidence: %v", err)
	}
	if ev.NavLinksCount != 0 || ev.ArticleLinksCount != 0 || ev.Title != "" {
		t.Fatalf("empty body should yield zero evidence, got %+v", ev)
	}
}
