package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"atlas.fit/gazetteer/internal/globaltime"
)

type fakeRunStore struct {
	completed map[string]*RunInfo // "source|version"
	running   map[string]int64
	nextID    int64
	finished  map[int64]string
	startedAt time.Time
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{
		completed: map[string]*RunInfo{},
		running:   map[string]int64{},
		finished:  map[int64]string{},
		nextID:    1,
	}
}

func (f *fakeRunStore) LastCompletedRun(_ context.Context, source, version string) (*RunInfo, error) {
	return f.completed[source+"|"+version], nil
}

func (f *fakeRunStore) InsertRunning(_ context.Context, source, version string, startedAt time.Time) (int64, bool, error) {
	key := source + "|" + version
	if _, exists := f.running[key]; exists {
		return 0, false, nil
	}
	id := f.nextID
	f.nextID++
	f.running[key] = id
	f.startedAt = startedAt
	return id, true, nil
}

func (f *fakeRunStore) MarkRunCompleted(_ context.Context, runID int64, _ RunStats, _ time.Time) error {
	f.finished[runID] = "completed"
	return nil
}

func (f *fakeRunStore) MarkRunFailed(_ context.Context, runID int64, _ string, _ time.Time) error {
	f.finished[runID] = "failed"
	return nil
}

func (f *fakeRunStore) ListRuns(_ context.Context, _ string, _ int) ([]RunInfo, error) {
	return nil, nil
}

func TestCheckRun_SkipsCompletedUnlessForced(t *testing.T) {
	t.Parallel()

	store := newFakeRunStore()
	store.completed["wikidata|v2"] = &RunInfo{RunID: 9, Status: "completed"}
	tracker := NewTracker(store, zerolog.Nop())

	result, err := tracker.CheckRun(context.Background(), "wikidata", "v2", false)
	if err != nil {
		t.Fatalf("check run: %v", err)
	}
	if !result.ShouldSkip {
		t.Fatalf("expected shouldSkip=true for completed run")
	}
	if result.LastRun == nil || result.LastRun.RunID != 9 {
		t.Fatalf("expected last run 9, got %+v", result.LastRun)
	}

	forced, err := tracker.CheckRun(context.Background(), "wikidata", "v2", true)
	if err != nil {
		t.Fatalf("check run forced: %v", err)
	}
	if forced.ShouldSkip {
		t.Fatalf("force=true must not skip")
	}
}

func TestCheckRun_NoCompletedRun(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(newFakeRunStore(), zerolog.Nop())
	result, err := tracker.CheckRun(context.Background(), "osm", "2026-08", false)
	if err != nil {
		t.Fatalf("check run: %v", err)
	}
	if result.ShouldSkip || result.LastRun != nil {
		t.Fatalf("expected no skip without completed run, got %+v", result)
	}
}

func TestStartRun_SecondConcurrentStarterLoses(t *testing.T) {
	t.Parallel()

	store := newFakeRunStore()
	tracker := NewTracker(store, zerolog.Nop())

	runID, started, err := tracker.StartRun(context.Background(), "osm", "2026-08")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if !started || runID == 0 {
		t.Fatalf("expected first start to win, got id=%d started=%t", runID, started)
	}

	_, started, err = tracker.StartRun(context.Background(), "osm", "2026-08")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if started {
		t.Fatalf("expected second concurrent start to be refused")
	}
}

func TestStartRun_StampsStartedAtInUTC(t *testing.T) {
	fixed := time.Date(2026, 8, 30, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	defer globaltime.Freeze(fixed)()

	store := newFakeRunStore()
	tracker := NewTracker(store, zerolog.Nop())

	if _, _, err := tracker.StartRun(context.Background(), "osm", "2026-08"); err != nil {
		t.Fatalf("start run: %v", err)
	}
	want := fixed.UTC()
	if !store.startedAt.Equal(want) || store.startedAt.Location() != time.UTC {
		t.Fatalf("expected startedAt %v in UTC, got %v", want, store.startedAt)
	}
}

func TestStartRun_RequiresSourceAndVersion(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(newFakeRunStore(), zerolog.Nop())
	if _, _, err := tracker.StartRun(context.Background(), " ", "v1"); err == nil {
		t.Fatalf("expected error for blank source")
	}
	if _, _, err := tracker.StartRun(context.Background(), "osm", ""); err == nil {
		t.Fatalf("expected error for blank version")
	}
}

func TestFailRun_TruncatesLongMessages(t *testing.T) {
	t.Parallel()

	store := newFakeRunStore()
	tracker := NewTracker(store, zerolog.Nop())

	long := make([]byte, maxRunErrorLength+100)
	for i := range long {
		long[i] = 'x'
	}
	if err := tracker.FailRun(context.Background(), 3, errors.New(string(long))); err != nil {
		t.Fatalf("fail run: %v", err)
	}
	if store.finished[3] != "failed" {
		t.Fatalf("expected run 3 marked failed")
	}
}
