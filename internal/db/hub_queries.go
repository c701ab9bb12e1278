package db

import (
	"context"
	"fmt"

	"atlas.fit/gazetteer/internal/globaltime"
	"atlas.fit/gazetteer/internal/hubs"
)

// The methods below implement hubs.HubStore, hubs.CandidateStore and
// hubs.EntitySource.

func (p *Pool) HubByHostURL(ctx context.Context, host, url string) (*hubs.StoredHub, error) {
	const q = `
SELECT host, url,
       COALESCE(place_slug, ''), COALESCE(place_kind, ''),
       COALESCE(topic_slug, ''), COALESCE(topic_label, ''),
       title, nav_links_count, article_links_count, COALESCE(evidence, 'null')
FROM geo.place_hubs
WHERE host = $1
  AND url = $2
`
	var hub hubs.StoredHub
	err := p.QueryRow(ctx, q, host, url).Scan(
		&hub.Host, &hub.URL, &hub.PlaceSlug, &hub.PlaceKind,
		&hub.TopicSlug, &hub.TopicLabel, &hub.Title,
		&hub.NavLinksCount, &hub.ArticleLinksCount, &hub.Evidence,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query hub %s%s: %w", host, url, err)
	}
	return &hub, nil
}

func (p *Pool) InsertHub(ctx context.Context, snap hubs.Snapshot) error {
	const q = `
INSERT INTO geo.place_hubs
	(host, url, place_slug, place_kind, topic_slug, topic_label,
	 title, nav_links_count, article_links_count, evidence, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
        $7, $8, $9, $10, $11, $11)
`
	now := globaltime.Now().UTC()
	_, err := p.Exec(ctx, q,
		snap.Host, snap.URL, snap.PlaceSlug, snap.PlaceKind,
		snap.TopicSlug, snap.TopicLabel, snap.Title,
		snap.NavLinksCount, snap.ArticleLinksCount, snap.Evidence, now)
	if err != nil {
		return fmt.Errorf("insert hub %s%s: %w", snap.Host, snap.URL, err)
	}
	return nil
}

func (p *Pool) UpdateHub(ctx context.Context, snap hubs.Snapshot) error {
	const q = `
UPDATE geo.place_hubs
SET place_slug = NULLIF($3, ''),
    place_kind = NULLIF($4, ''),
    topic_slug = NULLIF($5, ''),
    topic_label = NULLIF($6, ''),
    title = $7,
    nav_links_count = $8,
    article_links_count = $9,
    evidence = $10,
    updated_at = $11
WHERE host = $1
  AND url = $2
`
	now := globaltime.Now().UTC()
	tag, err := p.Exec(ctx, q,
		snap.Host, snap.URL, snap.PlaceSlug, snap.PlaceKind,
		snap.TopicSlug, snap.TopicLabel, snap.Title,
		snap.NavLinksCount, snap.ArticleLinksCount, snap.Evidence, now)
	if err != nil {
		return fmt.Errorf("update hub %s%s: %w", snap.Host, snap.URL, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hub %s%s does not exist", snap.Host, snap.URL)
	}
	return nil
}

func (p *Pool) InsertAuditEntry(ctx context.Context, entry hubs.AuditEntry) error {
	const q = `
INSERT INTO geo.hub_audit_log
	(domain, url, place_kind, place_name, decision,
	 validation_metrics, attempt_id, run_id, created_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5,
        NULLIF($6, '')::jsonb, NULLIF($7, ''), NULLIF($8, 0), $9)
`
	_, err := p.Exec(ctx, q,
		entry.Host, entry.URL, entry.PlaceKind, entry.PlaceName,
		entry.Decision, string(entry.ValidationMetrics), entry.AttemptID,
		entry.RunID, globaltime.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert hub audit entry: %w", err)
	}
	return nil
}

func (p *Pool) InsertDetermination(ctx context.Context, det hubs.Determination) error {
	const q = `
INSERT INTO geo.domain_determinations
	(domain, completed, rate_limit_triggered, hubs_inserted, hubs_updated,
	 hubs_unchanged, candidates_skipped, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := p.Exec(ctx, q,
		det.Host, det.Completed, det.RateLimitTriggered,
		det.Summary.Inserted, det.Summary.Updated, det.Summary.Unchanged,
		det.Summary.Skipped, det.Reason, globaltime.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert domain determination: %w", err)
	}
	return nil
}

func (p *Pool) UnlinkedCandidates(ctx context.Context, host string) ([]hubs.StoredHub, error) {
	const q = `
SELECT host, url,
       COALESCE(place_slug, ''), COALESCE(place_kind, ''),
       COALESCE(topic_slug, ''), COALESCE(topic_label, ''),
       title, nav_links_count, article_links_count, COALESCE(evidence, 'null')
FROM geo.place_hubs
WHERE host = $1
  AND place_slug IS NULL
  AND topic_slug IS NULL
ORDER BY nav_links_count DESC, url
`
	rows, err := p.Query(ctx, q, host)
	if err != nil {
		return nil, fmt.Errorf("query unlinked candidates for %s: %w", host, err)
	}
	defer rows.Close()

	var candidates []hubs.StoredHub
	for rows.Next() {
		var hub hubs.StoredHub
		if err := rows.Scan(
			&hub.Host, &hub.URL, &hub.PlaceSlug, &hub.PlaceKind,
			&hub.TopicSlug, &hub.TopicLabel, &hub.Title,
			&hub.NavLinksCount, &hub.ArticleLinksCount, &hub.Evidence,
		); err != nil {
			return nil, fmt.Errorf("scan unlinked candidate: %w", err)
		}
		candidates = append(candidates, hub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unlinked candidates: %w", err)
	}
	return candidates, nil
}

func (p *Pool) LinkHubToPlace(ctx context.Context, host, url, placeSlug, placeKind string) error {
	const q = `
UPDATE geo.place_hubs
SET place_slug = $3,
    place_kind = $4,
    updated_at = $5
WHERE host = $1
  AND url = $2
`
	tag, err := p.Exec(ctx, q, host, url, placeSlug, placeKind, globaltime.Now().UTC())
	if err != nil {
		return fmt.Errorf("link hub %s%s: %w", host, url, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hub %s%s does not exist", host, url)
	}
	return nil
}

func (p *Pool) TopEntities(ctx context.Context, kind string, n int) ([]hubs.Entity, error) {
	const q = `
SELECT pl.place_id, pl.kind, pn.name,
       COALESCE(pl.country_code, ''), COALESCE(pl.population, 0)
FROM geo.places pl
JOIN geo.place_names pn
	ON pn.name_id = pl.canonical_name_id
WHERE pl.kind = $1
  AND pl.status = 'active'
ORDER BY pl.population DESC NULLS LAST, pl.place_id
LIMIT $2
`
	return p.queryEntities(ctx, q, kind, n)
}

// DomainStats splits a domain's linked hubs into seeded (predicted
// rows with no link counts yet) and visited (rows carrying fetch
// evidence). Seeded rows are written by the external crawler when it
// queues predicted URLs; this core only ever persists visited rows.
func (p *Pool) DomainStats(ctx context.Context, host, kind string) (hubs.EntityStats, error) {
	const q = `
SELECT COUNT(*) FILTER (WHERE h.nav_links_count = 0),
       COUNT(*) FILTER (WHERE h.nav_links_count > 0),
       (SELECT COUNT(*)
        FROM geo.places
        WHERE kind = $2
          AND status = 'active')
FROM geo.place_hubs h
WHERE h.host = $1
  AND h.place_kind = $2
`
	var stats hubs.EntityStats
	err := p.QueryRow(ctx, q, host, kind).Scan(
		&stats.Seeded, &stats.Visited, &stats.TotalEligible)
	if err != nil {
		return hubs.EntityStats{}, fmt.Errorf("query domain stats for %s/%s: %w", host, kind, err)
	}
	return stats, nil
}

func (p *Pool) MissingEntities(ctx context.Context, host, kind string) ([]hubs.Entity, error) {
	const q = `
SELECT pl.place_id, pl.kind, pn.name,
       COALESCE(pl.country_code, ''), COALESCE(pl.population, 0)
FROM geo.places pl
JOIN geo.place_names pn
	ON pn.name_id = pl.canonical_name_id
WHERE pl.kind = $2
  AND pl.status = 'active'
  AND NOT EXISTS (
	SELECT 1
	FROM geo.place_hubs h
	WHERE h.host = $1
	  AND h.place_kind = $2
	  AND h.place_slug = replace(pn.normalized, ' ', '-'))
ORDER BY pl.population DESC NULLS LAST, pl.place_id
`
	return p.queryEntities(ctx, q, host, kind)
}

func (p *Pool) queryEntities(ctx context.Context, query string, args ...any) ([]hubs.Entity, error) {
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []hubs.Entity
	for rows.Next() {
		var entity hubs.Entity
		if err := rows.Scan(
			&entity.PlaceID, &entity.Kind, &entity.Name,
			&entity.Code, &entity.Population,
		); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}
