package hubs

// Thresholds configures hub candidate validation. MinArticleLinks is
// an opt-in fallback: at its zero default every page would satisfy
// articleLinksCount >= 0, so the article path only counts when the
// operator sets a positive minimum.
type Thresholds struct {
	MinNavLinks     int
	MinArticleLinks int
}

func DefaultThresholds() Thresholds {
	return Thresholds{MinNavLinks: 12, MinArticleLinks: 0}
}

// Evidence is the structural summary of one fetched candidate page.
type Evidence struct {
	URL               string `json:"url"`
	Title             string `json:"title"`
	NavLinksCount     int    `json:"nav_links_count"`
	ArticleLinksCount int    `json:"article_links_count"`
}

// Verdict reports a validation outcome. Reason is set only on
// failure and is stable enough to aggregate on.
type Verdict struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

const (
	ReasonNavLinksBelowThreshold = "nav-links-below-threshold"
	ReasonLinksBelowThreshold    = "nav-and-article-links-below-threshold"
)

// Validate scores one candidate page against the thresholds. A page
// passes on navigation density, or on article density when the
// article fallback is enabled. Failures always carry a reason.
func Validate(ev Evidence, th Thresholds) Verdict {
	if ev.NavLinksCount >= th.MinNavLinks {
		return Verdict{Passed: true}
	}
	if th.MinArticleLinks > 0 {
		if ev.ArticleLinksCount >= th.MinArticleLinks {
			return Verdict{Passed: true}
		}
		return Verdict{Reason: ReasonLinksBelowThreshold}
	}
	return Verdict{Reason: ReasonNavLinksBelowThreshold}
}
