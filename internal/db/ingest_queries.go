package db

import (
	"context"
	"fmt"
	"time"

	"atlas.fit/gazetteer/internal/gazetteer"
	"atlas.fit/gazetteer/internal/globaltime"
	"atlas.fit/gazetteer/internal/ingest"
)

// The methods below implement ingest.PlaceStore. Each call is one
// transaction: a place either lands with all its names and external
// ids, or not at all.

func (p *Pool) CreatePlace(ctx context.Context, rec ingest.NewPlaceRecord) (ingest.CreateResult, error) {
	now := globaltime.Now().UTC()

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return ingest.CreateResult{}, fmt.Errorf("begin create place: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertPlace = `
INSERT INTO geo.places
	(place_uuid, kind, country_code, adm1_code, adm2_code, lat, lng,
	 population, wikidata_qid, source, status, created_at, updated_at)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, 'active', $10, $10)
RETURNING place_id
`
	var placeID int64
	err = tx.QueryRow(ctx, insertPlace,
		string(rec.Kind), rec.CountryCode, rec.Adm1Code, rec.Adm2Code,
		rec.Lat, rec.Lng, rec.Population, rec.WikidataQID, rec.Source, now,
	).Scan(&placeID)
	if err != nil {
		return ingest.CreateResult{}, fmt.Errorf("insert place: %w", err)
	}

	namesAdded, canonicalNameID, err := insertNames(ctx, tx, placeID, rec.Names)
	if err != nil {
		return ingest.CreateResult{}, err
	}
	if canonicalNameID != 0 {
		const setCanonical = `
UPDATE geo.places
SET canonical_name_id = $2
WHERE place_id = $1
`
		if _, err := tx.Exec(ctx, setCanonical, placeID, canonicalNameID); err != nil {
			return ingest.CreateResult{}, fmt.Errorf("set canonical name: %w", err)
		}
	}

	if err := insertExternalIDs(ctx, tx, placeID, rec.ExternalIDs, now); err != nil {
		return ingest.CreateResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ingest.CreateResult{}, fmt.Errorf("commit create place: %w", err)
	}
	return ingest.CreateResult{PlaceID: placeID, NamesAdded: namesAdded}, nil
}

func (p *Pool) EnrichPlace(ctx context.Context, placeID int64, rec ingest.NewPlaceRecord) (ingest.EnrichResult, error) {
	now := globaltime.Now().UTC()

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return ingest.EnrichResult{}, fmt.Errorf("begin enrich place: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Fill-in only: existing values always win over incoming ones, and
	// the row is left untouched when nothing new arrives.
	const fillIn = `
UPDATE geo.places
SET country_code = COALESCE(country_code, $2),
    adm1_code = COALESCE(adm1_code, $3),
    adm2_code = COALESCE(adm2_code, $4),
    lat = COALESCE(lat, $5),
    lng = COALESCE(lng, $6),
    population = COALESCE(population, $7),
    wikidata_qid = COALESCE(wikidata_qid, $8),
    updated_at = $9
WHERE place_id = $1
  AND ((country_code IS NULL AND $2::text IS NOT NULL)
    OR (adm1_code IS NULL AND $3::text IS NOT NULL)
    OR (adm2_code IS NULL AND $4::text IS NOT NULL)
    OR (lat IS NULL AND $5::double precision IS NOT NULL)
    OR (lng IS NULL AND $6::double precision IS NOT NULL)
    OR (population IS NULL AND $7::bigint IS NOT NULL)
    OR (wikidata_qid IS NULL AND $8::text IS NOT NULL))
`
	tag, err := tx.Exec(ctx, fillIn, placeID,
		rec.CountryCode, rec.Adm1Code, rec.Adm2Code,
		rec.Lat, rec.Lng, rec.Population, rec.WikidataQID, now)
	if err != nil {
		return ingest.EnrichResult{}, fmt.Errorf("fill in place %d: %w", placeID, err)
	}

	namesAdded, _, err := insertNames(ctx, tx, placeID, rec.Names)
	if err != nil {
		return ingest.EnrichResult{}, err
	}
	if err := insertExternalIDs(ctx, tx, placeID, rec.ExternalIDs, now); err != nil {
		return ingest.EnrichResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ingest.EnrichResult{}, fmt.Errorf("commit enrich place: %w", err)
	}
	return ingest.EnrichResult{
		Updated:    tag.RowsAffected() > 0 || namesAdded > 0,
		NamesAdded: namesAdded,
	}, nil
}

// insertNames adds the names not already present under the logical
// (place_id, normalized, lang, name_kind) key and returns how many
// landed plus the id to use as canonical name, preferring the first
// preferred name over the first name overall.
func insertNames(ctx context.Context, tx Tx, placeID int64, names []ingest.NewNameRecord) (int, int64, error) {
	const insertName = `
INSERT INTO geo.place_names
	(place_id, name, normalized, lang, name_kind, is_preferred, is_official, created_at)
SELECT $1, $2, $3, $4, $5, $6, $7, $8
WHERE NOT EXISTS (
	SELECT 1
	FROM geo.place_names
	WHERE place_id = $1
	  AND normalized = $3
	  AND lang IS NOT DISTINCT FROM $4::text
	  AND name_kind = $5
)
RETURNING name_id
`
	now := globaltime.Now().UTC()
	added := 0
	var canonicalID int64
	canonicalPreferred := false
	for _, name := range names {
		var nameID int64
		err := tx.QueryRow(ctx, insertName,
			placeID, name.Name, name.Normalized, name.Lang,
			string(name.NameKind), name.IsPreferred, name.IsOfficial, now,
		).Scan(&nameID)
		if err != nil {
			if IsNoRows(err) {
				continue
			}
			return 0, 0, fmt.Errorf("insert place name %q: %w", name.Name, err)
		}
		added++
		if canonicalID == 0 || (name.IsPreferred && !canonicalPreferred) {
			canonicalID = nameID
			canonicalPreferred = name.IsPreferred
		}
	}
	return added, canonicalID, nil
}

func insertExternalIDs(ctx context.Context, tx Tx, placeID int64, ids []gazetteer.ExternalID, now time.Time) error {
	const insertExtID = `
INSERT INTO geo.place_external_ids (source, ext_id, place_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (source, ext_id) DO NOTHING
`
	for _, id := range ids {
		if _, err := tx.Exec(ctx, insertExtID, id.Source, id.ExtID, placeID, now); err != nil {
			return fmt.Errorf("insert external id %s/%s: %w", id.Source, id.ExtID, err)
		}
	}
	return nil
}
