package hubs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
)

// Snapshot is one validated hub observation ready to persist.
type Snapshot struct {
	Host              string
	URL               string
	PlaceSlug         string
	PlaceKind         string
	TopicSlug         string
	TopicLabel        string
	Title             string
	NavLinksCount     int
	ArticleLinksCount int
	Evidence          []byte
}

// StoredHub is an existing hub row as read back from storage.
type StoredHub struct {
	Host              string
	URL               string
	PlaceSlug         string
	PlaceKind         string
	TopicSlug         string
	TopicLabel        string
	Title             string
	NavLinksCount     int
	ArticleLinksCount int
	Evidence          []byte
}

// AuditEntry is one append-only validation decision record.
type AuditEntry struct {
	Host              string
	URL               string
	PlaceKind         string
	PlaceName         string
	Decision          string
	ValidationMetrics []byte
	AttemptID         string
	RunID             int64
}

// Summary aggregates one persistence pass over a domain.
type Summary struct {
	Inserted  int
	Updated   int
	Unchanged int
	Skipped   int
}

// Determination is the final per-domain outcome row.
type Determination struct {
	Host               string
	Completed          bool
	RateLimitTriggered bool
	Summary            Summary
	Reason             string
}

// Outcome reports what PersistValidatedHub actually did.
type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// HubStore is the persistence boundary for hub rows. HubByHostURL
// returns (nil, nil) when no row exists.
type HubStore interface {
	HubByHostURL(ctx context.Context, host, url string) (*StoredHub, error)
	InsertHub(ctx context.Context, snap Snapshot) error
	UpdateHub(ctx context.Context, snap Snapshot) error
	InsertAuditEntry(ctx context.Context, entry AuditEntry) error
	InsertDetermination(ctx context.Context, det Determination) error
}

type Manager struct {
	store  HubStore
	logger zerolog.Logger
}

func NewManager(store HubStore, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.With().Str("component", "hub-persist").Logger(),
	}
}

// PersistValidatedHub inserts a new hub row or updates an existing
// one. When the stored row already matches the snapshot field for
// field, no write happens and OutcomeUnchanged is returned. Redundant
// writes would churn updated_at and defeat change tracking, so the
// diff is authoritative.
func (m *Manager) PersistValidatedHub(ctx context.Context, snap Snapshot) (Outcome, error) {
	if snap.Host == "" || snap.URL == "" {
		return "", fmt.Errorf("hub snapshot requires host and url")
	}

	existing, err := m.store.HubByHostURL(ctx, snap.Host, snap.URL)
	if err != nil {
		return "", fmt.Errorf("look up hub %s%s: %w", snap.Host, snap.URL, err)
	}
	if existing == nil {
		if err := m.store.InsertHub(ctx, snap); err != nil {
			return "", fmt.Errorf("insert hub %s%s: %w", snap.Host, snap.URL, err)
		}
		m.logger.Debug().Str("host", snap.Host).Str("url", snap.URL).Msg("hub inserted")
		return OutcomeInserted, nil
	}

	changed := diffSnapshot(*existing, snap)
	if len(changed) == 0 {
		return OutcomeUnchanged, nil
	}
	if err := m.store.UpdateHub(ctx, snap); err != nil {
		return "", fmt.Errorf("update hub %s%s: %w", snap.Host, snap.URL, err)
	}
	m.logger.Debug().
		Str("host", snap.Host).
		Str("url", snap.URL).
		Strs("changed_fields", changed).
		Msg("hub updated")
	return OutcomeUpdated, nil
}

// RecordAuditEntry writes one audit row best-effort. Audit failures
// are logged and swallowed, they must never fail the pipeline.
func (m *Manager) RecordAuditEntry(ctx context.Context, entry AuditEntry) {
	if err := m.store.InsertAuditEntry(ctx, entry); err != nil {
		m.logger.Warn().Err(err).
			Str("host", entry.Host).
			Str("url", entry.URL).
			Msg("audit entry write failed")
	}
}

// RecordFinalDetermination writes the one-row summary for a domain
// pass, deriving the human-readable reason from the counts.
func (m *Manager) RecordFinalDetermination(ctx context.Context, host string, rateLimitTriggered bool, sum Summary) error {
	det := Determination{
		Host:               host,
		Completed:          !rateLimitTriggered,
		RateLimitTriggered: rateLimitTriggered,
		Summary:            sum,
		Reason:             determinationReason(rateLimitTriggered, sum),
	}
	if err := m.store.InsertDetermination(ctx, det); err != nil {
		return fmt.Errorf("record determination for %s: %w", host, err)
	}
	m.logger.Info().
		Str("host", host).
		Str("reason", det.Reason).
		Msg("domain determination recorded")
	return nil
}

func determinationReason(rateLimitTriggered bool, sum Summary) string {
	reason := fmt.Sprintf("%d inserted, %d updated, %d unchanged, %d skipped",
		sum.Inserted, sum.Updated, sum.Unchanged, sum.Skipped)
	if rateLimitTriggered {
		reason += "; stopped early on rate limit"
	}
	return reason
}

// diffSnapshot lists the fields where the snapshot differs from the
// stored row.
func diffSnapshot(existing StoredHub, snap Snapshot) []string {
	var changed []string
	if existing.PlaceSlug != snap.PlaceSlug {
		changed = append(changed, "place_slug")
	}
	if existing.PlaceKind != snap.PlaceKind {
		changed = append(changed, "place_kind")
	}
	if existing.TopicSlug != snap.TopicSlug {
		changed = append(changed, "topic_slug")
	}
	if existing.TopicLabel != snap.TopicLabel {
		changed = append(changed, "topic_label")
	}
	if existing.Title != snap.Title {
		changed = append(changed, "title")
	}
	if existing.NavLinksCount != snap.NavLinksCount {
		changed = append(changed, "nav_links_count")
	}
	if existing.ArticleLinksCount != snap.ArticleLinksCount {
		changed = append(changed, "article_links_count")
	}
	if !evidenceEqual(existing.Evidence, snap.Evidence) {
		changed = append(changed, "evidence")
	}
	return changed
}

// evidenceEqual compares evidence documents by JSON value, not bytes.
// Postgres re-renders jsonb on read (whitespace, key order), so raw
// byte comparison would flag every round-tripped document as changed.
func evidenceEqual(a, b []byte) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
