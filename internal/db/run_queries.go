package db

import (
	"context"
	"fmt"
	"time"

	"atlas.fit/gazetteer/internal/ingest"
)

// The methods below implement ingest.RunStore.

func (p *Pool) LastCompletedRun(ctx context.Context, source, version string) (*ingest.RunInfo, error) {
	const q = `
SELECT run_id, run_uuid, source, source_version, started_at, completed_at,
       status, places_created, places_updated, names_added, error_message
FROM geo.ingestion_runs
WHERE source = $1
  AND source_version = $2
  AND status = 'completed'
ORDER BY completed_at DESC
LIMIT 1
`
	var info ingest.RunInfo
	err := p.QueryRow(ctx, q, source, version).Scan(
		&info.RunID, &info.RunUUID, &info.Source, &info.SourceVersion,
		&info.StartedAt, &info.CompletedAt, &info.Status,
		&info.PlacesCreated, &info.PlacesUpdated, &info.NamesAdded,
		&info.ErrorMessage,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last completed run: %w", err)
	}
	return &info, nil
}

// InsertRunning relies on the partial unique index over running rows:
// the conditional insert either creates the row and returns its id, or
// hits the index and returns no row at all. Both concurrent callers
// racing through this see a consistent outcome.
func (p *Pool) InsertRunning(ctx context.Context, source, version string, startedAt time.Time) (int64, bool, error) {
	const q = `
INSERT INTO geo.ingestion_runs (run_uuid, source, source_version, started_at, status)
VALUES (gen_random_uuid(), $1, $2, $3, 'running')
ON CONFLICT (source, source_version) WHERE status = 'running' DO NOTHING
RETURNING run_id
`
	var runID int64
	if err := p.QueryRow(ctx, q, source, version, startedAt).Scan(&runID); err != nil {
		if IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("insert running ingestion run: %w", err)
	}
	return runID, true, nil
}

func (p *Pool) MarkRunCompleted(ctx context.Context, runID int64, stats ingest.RunStats, completedAt time.Time) error {
	const q = `
UPDATE geo.ingestion_runs
SET status = 'completed',
    completed_at = $2,
    places_created = $3,
    places_updated = $4,
    names_added = $5
WHERE run_id = $1
  AND status = 'running'
`
	tag, err := p.Exec(ctx, q, runID, completedAt,
		stats.PlacesCreated, stats.PlacesUpdated, stats.NamesAdded)
	if err != nil {
		return fmt.Errorf("mark run %d completed: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %d is not in running state", runID)
	}
	return nil
}

func (p *Pool) MarkRunFailed(ctx context.Context, runID int64, message string, completedAt time.Time) error {
	const q = `
UPDATE geo.ingestion_runs
SET status = 'failed',
    completed_at = $2,
    error_message = $3
WHERE run_id = $1
  AND status = 'running'
`
	tag, err := p.Exec(ctx, q, runID, completedAt, message)
	if err != nil {
		return fmt.Errorf("mark run %d failed: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %d is not in running state", runID)
	}
	return nil
}

func (p *Pool) ListRuns(ctx context.Context, source string, limit int) ([]ingest.RunInfo, error) {
	const q = `
SELECT run_id, run_uuid, source, source_version, started_at, completed_at,
       status, places_created, places_updated, names_added, error_message
FROM geo.ingestion_runs
WHERE ($1 = '' OR source = $1)
ORDER BY started_at DESC
LIMIT $2
`
	rows, err := p.Query(ctx, q, source, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingestion runs: %w", err)
	}
	defer rows.Close()

	var runs []ingest.RunInfo
	for rows.Next() {
		var info ingest.RunInfo
		if err := rows.Scan(
			&info.RunID, &info.RunUUID, &info.Source, &info.SourceVersion,
			&info.StartedAt, &info.CompletedAt, &info.Status,
			&info.PlacesCreated, &info.PlacesUpdated, &info.NamesAdded,
			&info.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan ingestion run: %w", err)
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingestion runs: %w", err)
	}
	return runs, nil
}
