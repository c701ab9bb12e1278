package db

import (
	"context"
	"fmt"

	"atlas.fit/gazetteer/internal/gazetteer"
)

// The methods below implement gazetteer.Lookup, one method per query.

func (p *Pool) PlaceIDByWikidataQID(ctx context.Context, qid string) (int64, bool, error) {
	const q = `
SELECT place_id
FROM geo.places
WHERE wikidata_qid = $1
ORDER BY place_id
LIMIT 1
`
	return p.scanOptionalID(ctx, q, qid)
}

func (p *Pool) PlaceIDByExternalID(ctx context.Context, source, extID string) (int64, bool, error) {
	const q = `
SELECT place_id
FROM geo.place_external_ids
WHERE source = $1
  AND ext_id = $2
`
	return p.scanOptionalID(ctx, q, source, extID)
}

func (p *Pool) CountryIDByCode(ctx context.Context, countryCode string) (int64, bool, error) {
	const q = `
SELECT place_id
FROM geo.places
WHERE kind = 'country'
  AND country_code = $1
ORDER BY place_id
LIMIT 1
`
	return p.scanOptionalID(ctx, q, countryCode)
}

func (p *Pool) RegionIDByAdminCodes(ctx context.Context, countryCode, adm1Code, adm2Code string) (int64, bool, error) {
	const q = `
SELECT place_id
FROM geo.places
WHERE kind = 'region'
  AND country_code = $1
  AND adm1_code = $2
  AND ($3 = '' OR adm2_code = $3)
ORDER BY (adm2_code IS NULL), place_id
LIMIT 1
`
	return p.scanOptionalID(ctx, q, countryCode, adm1Code, adm2Code)
}

func (p *Pool) CitiesByName(ctx context.Context, countryCode, normalizedName string) ([]gazetteer.PlacePoint, error) {
	const q = `
SELECT DISTINCT pl.place_id, pl.lat, pl.lng
FROM geo.places pl
JOIN geo.place_names pn
	ON pn.place_id = pl.place_id
WHERE pl.kind = 'city'
  AND pl.country_code = $1
  AND pn.normalized = $2
ORDER BY pl.place_id
`
	return p.queryPlacePoints(ctx, q, countryCode, normalizedName)
}

func (p *Pool) PlacesWithCoords(ctx context.Context, kind gazetteer.Kind, countryCode string) ([]gazetteer.PlacePoint, error) {
	const q = `
SELECT place_id, lat, lng
FROM geo.places
WHERE kind = $1
  AND country_code = $2
  AND lat IS NOT NULL
  AND lng IS NOT NULL
ORDER BY place_id
`
	return p.queryPlacePoints(ctx, q, string(kind), countryCode)
}

func (p *Pool) scanOptionalID(ctx context.Context, query string, args ...any) (int64, bool, error) {
	var id int64
	if err := p.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

func (p *Pool) queryPlacePoints(ctx context.Context, query string, args ...any) ([]gazetteer.PlacePoint, error) {
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query place points: %w", err)
	}
	defer rows.Close()

	var points []gazetteer.PlacePoint
	for rows.Next() {
		var point gazetteer.PlacePoint
		if err := rows.Scan(&point.ID, &point.Lat, &point.Lng); err != nil {
			return nil, fmt.Errorf("scan place point: %w", err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate place points: %w", err)
	}
	return points, nil
}
