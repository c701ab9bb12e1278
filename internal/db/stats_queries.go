package db

import (
	"context"
	"fmt"
)

// Stats is the snapshot served by the read-only API.
type Stats struct {
	PlacesByKind  map[string]int64 `json:"places_by_kind"`
	PlaceNames    int64            `json:"place_names"`
	Hubs          int64            `json:"hubs"`
	LinkedHubs    int64            `json:"linked_hubs"`
	CompletedRuns int64            `json:"completed_runs"`
}

func (p *Pool) CollectStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{PlacesByKind: make(map[string]int64)}

	const byKind = `
SELECT kind, COUNT(*)
FROM geo.places
WHERE status = 'active'
GROUP BY kind
`
	rows, err := p.Query(ctx, byKind)
	if err != nil {
		return nil, fmt.Errorf("query place counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan place count: %w", err)
		}
		stats.PlacesByKind[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate place counts: %w", err)
	}

	const totals = `
SELECT (SELECT COUNT(*) FROM geo.place_names),
       (SELECT COUNT(*) FROM geo.place_hubs),
       (SELECT COUNT(*) FROM geo.place_hubs WHERE place_slug IS NOT NULL OR topic_slug IS NOT NULL),
       (SELECT COUNT(*) FROM geo.ingestion_runs WHERE status = 'completed')
`
	err = p.QueryRow(ctx, totals).Scan(
		&stats.PlaceNames, &stats.Hubs, &stats.LinkedHubs, &stats.CompletedRuns)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	return stats, nil
}
