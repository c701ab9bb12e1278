package hubs

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestComputeGaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stats EntityStats
		want  GapReport
	}{
		{
			name:  "partial coverage",
			stats: EntityStats{Seeded: 3, Visited: 2, TotalEligible: 10},
			want:  GapReport{Seeded: 3, Visited: 2, Missing: 5, CoveragePercent: 50},
		},
		{
			name:  "over-seeded never goes negative",
			stats: EntityStats{Seeded: 8, Visited: 5, TotalEligible: 10},
			want:  GapReport{Seeded: 8, Visited: 5, Missing: 0, CoveragePercent: 130, IsComplete: true},
		},
		{
			name:  "complete",
			stats: EntityStats{Seeded: 4, Visited: 6, TotalEligible: 10},
			want:  GapReport{Seeded: 4, Visited: 6, Missing: 0, CoveragePercent: 100, IsComplete: true},
		},
		{
			name:  "rounding",
			stats: EntityStats{Seeded: 1, Visited: 0, TotalEligible: 3},
			want:  GapReport{Seeded: 1, Visited: 0, Missing: 2, CoveragePercent: 33},
		},
		{
			name:  "empty universe",
			stats: EntityStats{},
			want:  GapReport{},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ComputeGaps(tt.stats); got != tt.want {
				t.Fatalf("ComputeGaps(%+v) = %+v, want %+v", tt.stats, got, tt.want)
			}
		})
	}
}

func TestPredictHubURLs(t *testing.T) {
	t.Parallel()

	urls := PredictHubURLs("bbc.co.uk", "France", "FR")
	if len(urls) == 0 {
		t.Fatal("expected a non-empty prediction list")
	}
	for i := 1; i < len(urls); i++ {
		if urls[i].Confidence > urls[i-1].Confidence {
			t.Fatalf("predictions not sorted by confidence: %+v", urls)
		}
	}
	if urls[0].URL != "https://bbc.co.uk/news/world/france" {
		t.Fatalf("top prediction = %q", urls[0].URL)
	}

	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u.URL] {
			t.Fatalf("duplicate prediction %q", u.URL)
		}
		seen[u.URL] = true
	}
}

func TestPredictHubURLs_EmptyInputs(t *testing.T) {
	t.Parallel()

	if got := PredictHubURLs("", "France", "FR"); got != nil {
		t.Fatalf("empty domain should predict nothing, got %v", got)
	}
	if got := PredictHubURLs("bbc.co.uk", "", ""); got != nil {
		t.Fatalf("empty name should predict nothing, got %v", got)
	}
}

func TestPredictHubURLs_NoCountryCode(t *testing.T) {
	t.Parallel()

	urls := PredictHubURLs("news.example.com", "Climate Change", "")
	if len(urls) == 0 {
		t.Fatal("slug-based predictions should not require a code")
	}
	for _, u := range urls {
		if u.URL == "https://news.example.com/country/" {
			t.Fatalf("code pattern leaked with empty code: %q", u.URL)
		}
	}
}

type fakeEntitySource struct {
	top     []Entity
	stats   map[string]EntityStats
	missing []Entity
}

func (s *fakeEntitySource) TopEntities(_ context.Context, _ string, n int) ([]Entity, error) {
	if n < len(s.top) {
		return s.top[:n], nil
	}
	return s.top, nil
}

func (s *fakeEntitySource) DomainStats(_ context.Context, host, kind string) (EntityStats, error) {
	return s.stats[host+"|"+kind], nil
}

func (s *fakeEntitySource) MissingEntities(_ context.Context, _, _ string) ([]Entity, error) {
	return s.missing, nil
}

func TestGetTopEntities_ValidatesInput(t *testing.T) {
	t.Parallel()

	analyzer := NewGapAnalyzer(&fakeEntitySource{}, zerolog.Nop())
	if _, err := analyzer.GetTopEntities(context.Background(), "planet", 5); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := analyzer.GetTopEntities(context.Background(), "country", 0); err == nil {
		t.Fatal("expected error for non-positive n")
	}
}

func TestAnalyzeGaps_ReadsDomainStats(t *testing.T) {
	t.Parallel()

	source := &fakeEntitySource{stats: map[string]EntityStats{
		"bbc.co.uk|country": {Seeded: 3, Visited: 2, TotalEligible: 10},
	}}
	analyzer := NewGapAnalyzer(source, zerolog.Nop())

	report, err := analyzer.AnalyzeGaps(context.Background(), "bbc.co.uk", "country")
	if err != nil {
		t.Fatalf("AnalyzeGaps: %v", err)
	}
	if report.Missing != 5 || report.CoveragePercent != 50 {
		t.Fatalf("report = %+v, want missing=5 coverage=50", report)
	}
}
