package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"atlas.fit/gazetteer/internal/globaltime"
)

const maxRunErrorLength = 4000

// RunInfo is the ledger view of one ingestion run.
type RunInfo struct {
	RunID         int64      `json:"run_id"`
	RunUUID       string     `json:"run_uuid"`
	Source        string     `json:"source"`
	SourceVersion string     `json:"source_version"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Status        string     `json:"status"`
	PlacesCreated int        `json:"places_created"`
	PlacesUpdated int        `json:"places_updated"`
	NamesAdded    int        `json:"names_added"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
}

// RunStats accumulates counters for one run.
type RunStats struct {
	PlacesCreated int
	PlacesUpdated int
	NamesAdded    int
}

// RunStore is the ledger storage surface, one method per query.
// InsertRunning must be atomic: when a running row already exists for
// the same (source, version), it reports started=false instead of
// inserting, so two concurrent callers cannot both start.
type RunStore interface {
	LastCompletedRun(ctx context.Context, source, version string) (*RunInfo, error)
	InsertRunning(ctx context.Context, source, version string, startedAt time.Time) (runID int64, started bool, err error)
	MarkRunCompleted(ctx context.Context, runID int64, stats RunStats, completedAt time.Time) error
	MarkRunFailed(ctx context.Context, runID int64, message string, completedAt time.Time) error
	ListRuns(ctx context.Context, source string, limit int) ([]RunInfo, error)
}

// Tracker gates re-ingestion per (source, sourceVersion).
type Tracker struct {
	store  RunStore
	logger zerolog.Logger
}

func NewTracker(store RunStore, logger zerolog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// CheckResult reports whether a run should be skipped and the run that
// caused the skip, if any.
type CheckResult struct {
	ShouldSkip bool
	LastRun    *RunInfo
}

// CheckRun reports shouldSkip=true iff a completed run exists for
// (source, version) and force is false.
func (t *Tracker) CheckRun(ctx context.Context, source, version string, force bool) (CheckResult, error) {
	if t == nil || t.store == nil {
		return CheckResult{}, fmt.Errorf("run tracker is not initialized")
	}

	last, err := t.store.LastCompletedRun(ctx, strings.TrimSpace(source), strings.TrimSpace(version))
	if err != nil {
		return CheckResult{}, fmt.Errorf("query last completed run: %w", err)
	}
	if last == nil {
		return CheckResult{}, nil
	}
	return CheckResult{ShouldSkip: !force, LastRun: last}, nil
}

// StartRun inserts the running ledger row. started=false means another
// caller holds a running row for the same key; treat it like a skip.
func (t *Tracker) StartRun(ctx context.Context, source, version string) (int64, bool, error) {
	if t == nil || t.store == nil {
		return 0, false, fmt.Errorf("run tracker is not initialized")
	}

	source = strings.TrimSpace(source)
	version = strings.TrimSpace(version)
	if source == "" {
		return 0, false, fmt.Errorf("source is required")
	}
	if version == "" {
		return 0, false, fmt.Errorf("source version is required")
	}

	runID, started, err := t.store.InsertRunning(ctx, source, version, globaltime.UTC())
	if err != nil {
		return 0, false, fmt.Errorf("insert running ingestion run: %w", err)
	}
	if !started {
		t.logger.Warn().
			Str("source", source).
			Str("source_version", version).
			Msg("another ingestion run is already running for this source version")
	}
	return runID, started, nil
}

// CompleteRun transitions the run to its terminal completed state.
func (t *Tracker) CompleteRun(ctx context.Context, runID int64, stats RunStats) error {
	if t == nil || t.store == nil {
		return fmt.Errorf("run tracker is not initialized")
	}
	if err := t.store.MarkRunCompleted(ctx, runID, stats, globaltime.UTC()); err != nil {
		return fmt.Errorf("mark run %d completed: %w", runID, err)
	}
	return nil
}

// FailRun transitions the run to its terminal failed state.
func (t *Tracker) FailRun(ctx context.Context, runID int64, cause error) error {
	if t == nil || t.store == nil {
		return fmt.Errorf("run tracker is not initialized")
	}

	msg := "unknown error"
	if cause != nil {
		msg = strings.TrimSpace(cause.Error())
	}
	if len(msg) > maxRunErrorLength {
		msg = msg[:maxRunErrorLength]
	}

	if err := t.store.MarkRunFailed(ctx, runID, msg, globaltime.UTC()); err != nil {
		return fmt.Errorf("mark run %d failed: %w", runID, err)
	}
	return nil
}
