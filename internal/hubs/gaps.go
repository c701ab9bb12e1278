package hubs

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"atlas.fit/gazetteer/internal/gazetteer"
)

// Entity is a place eligible for hub coverage on a domain.
type Entity struct {
	PlaceID    int64  `json:"place_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	Population int64  `json:"population"`
}

// EntityStats counts hub coverage for one (domain, kind) pair.
type EntityStats struct {
	Seeded        int `json:"seeded"`
	Visited       int `json:"visited"`
	TotalEligible int `json:"total_eligible"`
}

// GapReport is the derived coverage picture for one domain and kind.
type GapReport struct {
	Seeded          int  `json:"seeded"`
	Visited         int  `json:"visited"`
	Missing         int  `json:"missing"`
	CoveragePercent int  `json:"coverage_percent"`
	IsComplete      bool `json:"is_complete"`
}

// HubURL is one predicted hub location with a relative confidence.
type HubURL struct {
	URL        string  `json:"url"`
	Confidence float64 `json:"confidence"`
}

// EntitySource reads coverage data from storage.
type EntitySource interface {
	TopEntities(ctx context.Context, kind string, n int) ([]Entity, error)
	DomainStats(ctx context.Context, host, kind string) (EntityStats, error)
	MissingEntities(ctx context.Context, host, kind string) ([]Entity, error)
}

type GapAnalyzer struct {
	source EntitySource
	logger zerolog.Logger
}

func NewGapAnalyzer(source EntitySource, logger zerolog.Logger) *GapAnalyzer {
	return &GapAnalyzer{
		source: source,
		logger: logger.With().Str("component", "hub-gaps").Logger(),
	}
}

// GetTopEntities returns the n most important entities of a kind,
// ranked by population since no editorial importance score exists yet.
func (a *GapAnalyzer) GetTopEntities(ctx context.Context, kind string, n int) ([]Entity, error) {
	if _, err := gazetteer.ParseKind(kind); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("top entity count must be positive, got %d", n)
	}
	entities, err := a.source.TopEntities(ctx, kind, n)
	if err != nil {
		return nil, fmt.Errorf("list top %s entities: %w", kind, err)
	}
	return entities, nil
}

// AnalyzeGaps derives the coverage report for one (domain, kind) from
// raw stats. Missing is clamped at zero so over-seeded domains do not
// report negative gaps.
func (a *GapAnalyzer) AnalyzeGaps(ctx context.Context, host, kind string) (*GapReport, error) {
	stats, err := a.source.DomainStats(ctx, host, kind)
	if err != nil {
		return nil, fmt.Errorf("domain stats for %s/%s: %w", host, kind, err)
	}
	report := ComputeGaps(stats)
	return &report, nil
}

// ComputeGaps is the pure coverage arithmetic behind AnalyzeGaps.
func ComputeGaps(stats EntityStats) GapReport {
	report := GapReport{
		Seeded:  stats.Seeded,
		Visited: stats.Visited,
	}
	covered := stats.Seeded + stats.Visited
	report.Missing = stats.TotalEligible - covered
	if report.Missing < 0 {
		report.Missing = 0
	}
	if stats.TotalEligible > 0 {
		report.CoveragePercent = int(math.Round(100 * float64(covered) / float64(stats.TotalEligible)))
	}
	report.IsComplete = report.Missing == 0 && stats.TotalEligible > 0
	return report
}

// hub path patterns, roughly ordered by how often news sites use them
var hubPathPatterns = []struct {
	format     string
	confidence float64
	needsCode  bool
}{
	{"https://%s/news/world/%s", 0.9, false},
	{"https://%s/world/%s", 0.85, false},
	{"https://%s/news/%s", 0.8, false},
	{"https://%s/topics/%s", 0.7, false},
	{"https://%s/tag/%s", 0.6, false},
	{"https://%s/%s", 0.5, false},
	{"https://%s/country/%s", 0.45, true},
	{"https://%s/world/%s", 0.4, true},
}

// PredictHubURLs builds candidate hub URLs for an entity on a domain
// from slug and country-code path patterns. The list is sorted by
// confidence, highest first, and is never empty when both domain and
// name are non-empty.
func PredictHubURLs(domain, entityName, entityCode string) []HubURL {
	domain = strings.TrimSpace(strings.ToLower(domain))
	slug := gazetteer.Slug(entityName)
	if domain == "" || slug == "" {
		return nil
	}
	code := strings.ToLower(strings.TrimSpace(entityCode))

	seen := make(map[string]bool)
	var urls []HubURL
	for _, pattern := range hubPathPatterns {
		part := slug
		if pattern.needsCode {
			if code == "" {
				continue
			}
			part = code
		}
		url := fmt.Sprintf(pattern.format, domain, part)
		if seen[url] {
			continue
		}
		seen[url] = true
		urls = append(urls, HubURL{URL: url, Confidence: pattern.confidence})
	}

	sort.Slice(urls, func(i, j int) bool {
		if urls[i].Confidence != urls[j].Confidence {
			return urls[i].Confidence > urls[j].Confidence
		}
		return urls[i].URL < urls[j].URL
	})
	return urls
}
