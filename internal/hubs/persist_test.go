package hubs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeHubStore struct {
	existing map[string]*StoredHub

	inserts        []Snapshot
	updates        []Snapshot
	auditEntries   []AuditEntry
	auditErr       error
	determinations []Determination
}

func (s *fakeHubStore) HubByHostURL(_ context.Context, host, url string) (*StoredHub, error) {
	return s.existing[host+url], nil
}

func (s *fakeHubStore) InsertHub(_ context.Context, snap Snapshot) error {
	s.inserts = append(s.inserts, snap)
	return nil
}

func (s *fakeHubStore) UpdateHub(_ context.Context, snap Snapshot) error {
	s.updates = append(s.updates, snap)
	return nil
}

func (s *fakeHubStore) InsertAuditEntry(_ context.Context, entry AuditEntry) error {
	if s.auditErr != nil {
		return s.auditErr
	}
	s.auditEntries = append(s.auditEntries, entry)
	return nil
}

func (s *fakeHubStore) InsertDetermination(_ context.Context, det Determination) error {
	s.determinations = append(s.determinations, det)
	return nil
}

func TestPersistValidatedHub_InsertsNewRow(t *testing.T) {
	t.Parallel()

	store := &fakeHubStore{}
	mgr := NewManager(store, zerolog.Nop())

	outcome, err := mgr.PersistValidatedHub(context.Background(), Snapshot{
		Host: "bbc.co.uk", URL: "/news/world/france", PlaceSlug: "france",
		NavLinksCount: 30,
	})
	if err != nil {
		t.Fatalf("PersistValidatedHub: %v", err)
	}
	if outcome != OutcomeInserted || len(store.inserts) != 1 {
		t.Fatalf("outcome = %q, inserts = %d", outcome, len(store.inserts))
	}
}

func TestPersistValidatedHub_SkipsUnchangedSnapshot(t *testing.T) {
	t.Parallel()

	// Stored evidence carries jsonb's rendering (spaces, reordered
	// keys) of the snapshot's compact document. The diff must still
	// see them as equal.
	existing := &StoredHub{
		Host: "bbc.co.uk", URL: "/news/world/france", PlaceSlug: "france",
		Title: "France", NavLinksCount: 30, ArticleLinksCount: 12,
		Evidence: []byte(`{"title": "France", "nav_links_count": 30}`),
	}
	store := &fakeHubStore{existing: map[string]*StoredHub{
		"bbc.co.uk/news/world/france": existing,
	}}
	mgr := NewManager(store, zerolog.Nop())

	outcome, err := mgr.PersistValidatedHub(context.Background(), Snapshot{
		Host: "bbc.co.uk", URL: "/news/world/france", PlaceSlug: "france",
		Title: "France", NavLinksCount: 30, ArticleLinksCount: 12,
		Evidence: []byte(`{"nav_links_count":30,"title":"France"}`),
	})
	if err != nil {
		t.Fatalf("PersistValidatedHub: %v", err)
	}
	if outcome != OutcomeUnchanged {
		t.Fatalf("outcome = %q, want unchanged", outcome)
	}
	if len(store.updates) != 0 || len(store.inserts) != 0 {
		t.Fatalf("unchanged snapshot must not write, got %d updates %d inserts",
			len(store.updates), len(store.inserts))
	}
}

func TestPersistValidatedHub_UpdatesOnEvidenceValueChange(t *testing.T) {
	t.Parallel()

	store := &fakeHubStore{existing: map[string]*StoredHub{
		"bbc.co.uk/news/world/france": {
			Host: "bbc.co.uk", URL: "/news/world/france",
			Title: "France", NavLinksCount: 30,
			Evidence: []byte(`{"nav_links_count": 30}`),
		},
	}}
	mgr := NewManager(store, zerolog.Nop())

	outcome, err := mgr.PersistValidatedHub(context.Background(), Snapshot{
		Host: "bbc.co.uk", URL: "/news/world/france",
		Title: "France", NavLinksCount: 30,
		Evidence: []byte(`{"nav_links_count":31}`),
	})
	if err != nil {
		t.Fatalf("PersistValidatedHub: %v", err)
	}
	if outcome != OutcomeUpdated || len(store.updates) != 1 {
		t.Fatalf("outcome = %q, updates = %d", outcome, len(store.updates))
	}
}

func TestPersistValidatedHub_UpdatesOnDiff(t *testing.T) {
	t.Parallel()

	store := &fakeHubStore{existing: map[string]*StoredHub{
		"bbc.co.uk/news/world/france": {
			Host: "bbc.co.uk", URL: "/news/world/france",
			Title: "France", NavLinksCount: 30,
		},
	}}
	mgr := NewManager(store, zerolog.Nop())

	outcome, err := mgr.PersistValidatedHub(context.Background(), Snapshot{
		Host: "bbc.co.uk", URL: "/news/world/france",
		Title: "France | BBC", NavLinksCount: 33,
	})
	if err != nil {
		t.Fatalf("PersistValidatedHub: %v", err)
	}
	if outcome != OutcomeUpdated || len(store.updates) != 1 {
		t.Fatalf("outcome = %q, updates = %d", outcome, len(store.updates))
	}
}

func TestPersistValidatedHub_RequiresHostAndURL(t *testing.T) {
	t.Parallel()

	mgr := NewManager(&fakeHubStore{}, zerolog.Nop())
	if _, err := mgr.PersistValidatedHub(context.Background(), Snapshot{Host: "bbc.co.uk"}); err == nil {
		t.Fatal("expected error for snapshot without url")
	}
}

func TestRecordAuditEntry_SwallowsWriteFailure(t *testing.T) {
	t.Parallel()

	store := &fakeHubStore{auditErr: errors.New("disk full")}
	mgr := NewManager(store, zerolog.Nop())

	// Must not panic or surface the error.
	mgr.RecordAuditEntry(context.Background(), AuditEntry{
		Host: "bbc.co.uk", URL: "/news/world/france", Decision: "validated",
	})
}

func TestRecordFinalDetermination_BuildsReason(t *testing.T) {
	t.Parallel()

	store := &fakeHubStore{}
	mgr := NewManager(store, zerolog.Nop())

	err := mgr.RecordFinalDetermination(context.Background(), "bbc.co.uk", true, Summary{
		Inserted: 2, Updated: 1, Unchanged: 4, Skipped: 3,
	})
	if err != nil {
		t.Fatalf("RecordFinalDetermination: %v", err)
	}
	det := store.determinations[0]
	if det.Completed {
		t.Fatal("rate-limited pass must not be marked completed")
	}
	want := "2 inserted, 1 updated, 4 unchanged, 3 skipped; stopped early on rate limit"
	if det.Reason != want {
		t.Fatalf("reason = %q, want %q", det.Reason, want)
	}
}
