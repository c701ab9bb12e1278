package db

import (
	"context"
	"fmt"

	"atlas.fit/gazetteer/internal/globaltime"
	"atlas.fit/gazetteer/internal/merge"
)

// The methods below implement merge.Store.

func (p *Pool) ListCandidates(ctx context.Context, filter merge.Filter) ([]merge.Candidate, error) {
	const q = `
SELECT pl.place_id,
       pl.kind,
       COALESCE(pl.country_code, ''),
       pn.name,
       pl.lat,
       pl.lng,
       pl.population,
       pl.wikidata_qid,
       (SELECT COUNT(*)
        FROM geo.place_external_ids x
        WHERE x.place_id = pl.place_id)
FROM geo.places pl
JOIN geo.place_names pn
	ON pn.place_id = pl.place_id
WHERE pl.status = 'active'
  AND ($1 = '' OR pl.country_code = $1)
  AND ($2 = '' OR pl.kind = $2)
  AND ($3 = '' OR EXISTS (
	SELECT 1
	FROM geo.place_hierarchy h
	WHERE h.child_id = pl.place_id
	  AND h.relation = $3))
ORDER BY pl.place_id, pn.name_id
`
	rows, err := p.Query(ctx, q, filter.CountryCode, filter.Kind, filter.Role)
	if err != nil {
		return nil, fmt.Errorf("query merge candidates: %w", err)
	}
	defer rows.Close()

	var candidates []merge.Candidate
	for rows.Next() {
		var cand merge.Candidate
		if err := rows.Scan(
			&cand.PlaceID, &cand.Kind, &cand.CountryCode, &cand.Name,
			&cand.Lat, &cand.Lng, &cand.Population, &cand.WikidataQID,
			&cand.ExternalIDCount,
		); err != nil {
			return nil, fmt.Errorf("scan merge candidate: %w", err)
		}
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merge candidates: %w", err)
	}
	return candidates, nil
}

// MergeGroup folds every loser into the survivor in one transaction.
// Names move unless the survivor already carries the same logical
// name, and at most one row per (normalized, lang, name_kind) moves
// even when a loser holds pre-existing duplicates; hierarchy edges and
// attributes move insert-or-ignore so conflicting rows collapse
// instead of erroring; external ids simply repoint since their key
// does not involve the place.
func (p *Pool) MergeGroup(ctx context.Context, survivorID int64, loserIDs []int64, mint *merge.MintedID) error {
	now := globaltime.Now().UTC()

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin merge group: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, loserID := range loserIDs {
		if err := foldPlace(ctx, tx, survivorID, loserID); err != nil {
			return err
		}
	}

	if mint != nil {
		const mintExtID = `
INSERT INTO geo.place_external_ids (source, ext_id, place_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (source, ext_id) DO NOTHING
`
		if _, err := tx.Exec(ctx, mintExtID, mint.Source, mint.ExtID, survivorID, now); err != nil {
			return fmt.Errorf("mint external id %s/%s: %w", mint.Source, mint.ExtID, err)
		}
	}

	const touchSurvivor = `
UPDATE geo.places
SET updated_at = $2
WHERE place_id = $1
`
	if _, err := tx.Exec(ctx, touchSurvivor, survivorID, now); err != nil {
		return fmt.Errorf("touch survivor %d: %w", survivorID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit merge group: %w", err)
	}
	return nil
}

func foldPlace(ctx context.Context, tx Tx, survivorID, loserID int64) error {
	const moveNames = `
UPDATE geo.place_names pn
SET place_id = $1
WHERE pn.place_id = $2
  AND pn.name_id IN (
	SELECT DISTINCT ON (normalized, lang, name_kind) name_id
	FROM geo.place_names
	WHERE place_id = $2
	ORDER BY normalized, lang, name_kind, is_preferred DESC, name_id)
  AND NOT EXISTS (
	SELECT 1
	FROM geo.place_names s
	WHERE s.place_id = $1
	  AND s.normalized = pn.normalized
	  AND s.lang IS NOT DISTINCT FROM pn.lang
	  AND s.name_kind = pn.name_kind)
`
	if _, err := tx.Exec(ctx, moveNames, survivorID, loserID); err != nil {
		return fmt.Errorf("move names from %d: %w", loserID, err)
	}
	const dropDupNames = `
DELETE FROM geo.place_names
WHERE place_id = $1
`
	if _, err := tx.Exec(ctx, dropDupNames, loserID); err != nil {
		return fmt.Errorf("drop duplicate names of %d: %w", loserID, err)
	}

	const moveChildEdges = `
INSERT INTO geo.place_hierarchy (parent_id, child_id, relation, depth, metadata, created_at)
SELECT $1, child_id, relation, depth, metadata, created_at
FROM geo.place_hierarchy
WHERE parent_id = $2
  AND child_id <> $1
ON CONFLICT (parent_id, child_id, relation) DO NOTHING
`
	if _, err := tx.Exec(ctx, moveChildEdges, survivorID, loserID); err != nil {
		return fmt.Errorf("move child edges of %d: %w", loserID, err)
	}
	const moveParentEdges = `
INSERT INTO geo.place_hierarchy (parent_id, child_id, relation, depth, metadata, created_at)
SELECT parent_id, $1, relation, depth, metadata, created_at
FROM geo.place_hierarchy
WHERE child_id = $2
  AND parent_id <> $1
ON CONFLICT (parent_id, child_id, relation) DO NOTHING
`
	if _, err := tx.Exec(ctx, moveParentEdges, survivorID, loserID); err != nil {
		return fmt.Errorf("move parent edges of %d: %w", loserID, err)
	}
	const dropEdges = `
DELETE FROM geo.place_hierarchy
WHERE parent_id = $1
   OR child_id = $1
`
	if _, err := tx.Exec(ctx, dropEdges, loserID); err != nil {
		return fmt.Errorf("drop edges of %d: %w", loserID, err)
	}

	const moveExternalIDs = `
UPDATE geo.place_external_ids
SET place_id = $1
WHERE place_id = $2
`
	if _, err := tx.Exec(ctx, moveExternalIDs, survivorID, loserID); err != nil {
		return fmt.Errorf("move external ids of %d: %w", loserID, err)
	}

	const moveAttributes = `
INSERT INTO geo.place_attribute_values (place_id, attribute, value, updated_at)
SELECT $1, attribute, value, updated_at
FROM geo.place_attribute_values
WHERE place_id = $2
ON CONFLICT (place_id, attribute) DO NOTHING
`
	if _, err := tx.Exec(ctx, moveAttributes, survivorID, loserID); err != nil {
		return fmt.Errorf("move attributes of %d: %w", loserID, err)
	}
	const dropAttributes = `
DELETE FROM geo.place_attribute_values
WHERE place_id = $1
`
	if _, err := tx.Exec(ctx, dropAttributes, loserID); err != nil {
		return fmt.Errorf("drop attributes of %d: %w", loserID, err)
	}

	const dropPlace = `
DELETE FROM geo.places
WHERE place_id = $1
`
	tag, err := tx.Exec(ctx, dropPlace, loserID)
	if err != nil {
		return fmt.Errorf("delete merged place %d: %w", loserID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merged place %d no longer exists", loserID)
	}
	return nil
}
