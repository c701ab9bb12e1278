package db

import (
	"context"
	"fmt"
	"time"
)

// AddRelation inserts a hierarchy edge, silently absorbing duplicates
// so re-application is idempotent. Returns whether a new row was
// written.
func (p *Pool) AddRelation(ctx context.Context, parentID, childID int64, relation string, metadata []byte, now time.Time) (bool, error) {
	const q = `
INSERT INTO geo.place_hierarchy (parent_id, child_id, relation, depth, metadata, created_at)
VALUES ($1, $2, $3, 1, $4::jsonb, $5)
ON CONFLICT (parent_id, child_id, relation) DO NOTHING
`
	var meta *string
	if len(metadata) > 0 {
		s := string(metadata)
		meta = &s
	}

	tag, err := p.Exec(ctx, q, parentID, childID, relation, meta, now.UTC())
	if err != nil {
		return false, fmt.Errorf("insert hierarchy edge %d->%d (%s): %w", parentID, childID, relation, err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetParents returns the parent ids of a child for one relation,
// oldest edge first.
func (p *Pool) GetParents(ctx context.Context, childID int64, relation string) ([]int64, error) {
	const q = `
SELECT parent_id
FROM geo.place_hierarchy
WHERE child_id = $1
  AND relation = $2
ORDER BY created_at, parent_id
`
	rows, err := p.Query(ctx, q, childID, relation)
	if err != nil {
		return nil, fmt.Errorf("query parents of %d: %w", childID, err)
	}
	defer rows.Close()

	var parents []int64
	for rows.Next() {
		var parentID int64
		if err := rows.Scan(&parentID); err != nil {
			return nil, fmt.Errorf("scan parent id: %w", err)
		}
		parents = append(parents, parentID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parent ids: %w", err)
	}
	return parents, nil
}
