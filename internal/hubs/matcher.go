package hubs

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"atlas.fit/gazetteer/internal/gazetteer"
)

// MatchOptions controls one matchDomain pass. DryRun previews the
// links that would be applied without writing anything.
type MatchOptions struct {
	DryRun     bool
	Thresholds Thresholds
}

// MatchAction records one candidate linked (or previewed) to a place.
type MatchAction struct {
	URL       string `json:"url"`
	PlaceSlug string `json:"place_slug"`
	PlaceName string `json:"place_name"`
	Applied   bool   `json:"applied"`
}

// MatchSkip records one candidate that was considered but not linked.
type MatchSkip struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// MatchReport is the outcome of one matchDomain pass, with gap
// analysis before and after so the coverage delta is visible.
type MatchReport struct {
	Actions []MatchAction `json:"actions"`
	Skipped []MatchSkip   `json:"skipped"`
	Before  GapReport     `json:"before"`
	After   GapReport     `json:"after"`
}

// CandidateStore reads unlinked hub candidates and applies links.
type CandidateStore interface {
	UnlinkedCandidates(ctx context.Context, host string) ([]StoredHub, error)
	LinkHubToPlace(ctx context.Context, host, url, placeSlug, placeKind string) error
}

type Matcher struct {
	entities EntitySource
	store    CandidateStore
	logger   zerolog.Logger
}

func NewMatcher(entities EntitySource, store CandidateStore, logger zerolog.Logger) *Matcher {
	return &Matcher{
		entities: entities,
		store:    store,
		logger:   logger.With().Str("component", "hub-matcher").Logger(),
	}
}

// MatchDomain walks the countries still missing a hub on the domain
// and tries to satisfy each from the already-validated but unlinked
// candidates. Per-candidate failures are recorded and the loop keeps
// going. Gap analysis runs before and after so the report shows what
// the pass changed.
func (m *Matcher) MatchDomain(ctx context.Context, host string, opts MatchOptions) (*MatchReport, error) {
	if host == "" {
		return nil, fmt.Errorf("match domain requires a host")
	}
	if opts.Thresholds.MinNavLinks == 0 {
		opts.Thresholds = DefaultThresholds()
	}

	before, err := m.entities.DomainStats(ctx, host, string(gazetteer.KindCountry))
	if err != nil {
		return nil, fmt.Errorf("domain stats before match: %w", err)
	}
	missing, err := m.entities.MissingEntities(ctx, host, string(gazetteer.KindCountry))
	if err != nil {
		return nil, fmt.Errorf("missing entities for %s: %w", host, err)
	}
	candidates, err := m.store.UnlinkedCandidates(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("unlinked candidates for %s: %w", host, err)
	}

	report := &MatchReport{Before: ComputeGaps(before)}
	used := make(map[string]bool)

	for _, entity := range missing {
		slug := gazetteer.Slug(entity.Name)
		for _, cand := range candidates {
			if used[cand.URL] {
				continue
			}
			if !candidateMatchesEntity(cand, slug, entity.Code) {
				continue
			}
			verdict := Validate(Evidence{
				URL:               cand.URL,
				Title:             cand.Title,
				NavLinksCount:     cand.NavLinksCount,
				ArticleLinksCount: cand.ArticleLinksCount,
			}, opts.Thresholds)
			if !verdict.Passed {
				report.Skipped = append(report.Skipped, MatchSkip{URL: cand.URL, Reason: verdict.Reason})
				used[cand.URL] = true
				continue
			}

			action := MatchAction{
				URL:       cand.URL,
				PlaceSlug: slug,
				PlaceName: entity.Name,
				Applied:   !opts.DryRun,
			}
			if !opts.DryRun {
				if err := m.store.LinkHubToPlace(ctx, host, cand.URL, slug, entity.Kind); err != nil {
					m.logger.Error().Err(err).
						Str("host", host).
						Str("url", cand.URL).
						Msg("linking hub failed")
					report.Skipped = append(report.Skipped, MatchSkip{URL: cand.URL, Reason: "link-failed"})
					used[cand.URL] = true
					continue
				}
			}
			report.Actions = append(report.Actions, action)
			used[cand.URL] = true
			break
		}
	}

	after, err := m.entities.DomainStats(ctx, host, string(gazetteer.KindCountry))
	if err != nil {
		return nil, fmt.Errorf("domain stats after match: %w", err)
	}
	report.After = ComputeGaps(after)

	m.logger.Info().
		Str("host", host).
		Bool("dry_run", opts.DryRun).
		Int("actions", len(report.Actions)).
		Int("skipped", len(report.Skipped)).
		Msg("domain match finished")
	return report, nil
}

// candidateMatchesEntity checks whether a candidate URL plausibly
// belongs to the entity, by slug or by country-code path segment.
func candidateMatchesEntity(cand StoredHub, slug, code string) bool {
	url := strings.ToLower(cand.URL)
	if slug != "" && strings.Contains(url, slug) {
		return true
	}
	if code != "" {
		segment := "/" + strings.ToLower(code)
		if strings.HasSuffix(url, segment) || strings.Contains(url, segment+"/") {
			return true
		}
	}
	if cand.PlaceSlug != "" && cand.PlaceSlug == slug {
		return true
	}
	return false
}
