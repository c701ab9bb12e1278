package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"atlas.fit/gazetteer/internal/gazetteer"
)

// Filter narrows which places are considered for merging. Empty
// fields match everything.
type Filter struct {
	CountryCode string
	Kind        string
	Role        string
}

// Candidate is one (place, name) pair from storage. A place with
// three names shows up as three candidates and can therefore fall
// into three different groups.
type Candidate struct {
	PlaceID         int64
	Kind            string
	CountryCode     string
	Name            string
	Lat             *float64
	Lng             *float64
	Population      *int64
	WikidataQID     *string
	ExternalIDCount int
}

// MintedID is an external id written to the survivor so the merged
// identity stays resolvable after duplicates are gone.
type MintedID struct {
	Source string `json:"source"`
	ExtID  string `json:"ext_id"`
}

// Store is the persistence boundary for merge runs. MergeGroup must
// apply the whole group atomically: repoint names, hierarchy,
// attributes and external ids to the survivor, then delete the
// losers.
type Store interface {
	ListCandidates(ctx context.Context, filter Filter) ([]Candidate, error)
	MergeGroup(ctx context.Context, survivorID int64, loserIDs []int64, mint *MintedID) error
}

// GroupPlan describes one pending merge.
type GroupPlan struct {
	Key        string    `json:"key"`
	SurvivorID int64     `json:"survivor_id"`
	LoserIDs   []int64   `json:"loser_ids"`
	MintedID   *MintedID `json:"minted_id,omitempty"`
}

// Result summarizes a merge pass. Plans holds every group that was
// (or would be) merged, in processing order.
type Result struct {
	GroupsConsidered int
	GroupsMerged     int
	GroupsSkipped    int
	GroupsFailed     int
	PlacesRemoved    int
	Plans            []GroupPlan
}

type Engine struct {
	store     Store
	metric    gazetteer.DistanceMetric
	threshold float64
	logger    zerolog.Logger
}

type Option func(*Engine)

// WithDistanceMetric swaps the proximity confirmation metric.
func WithDistanceMetric(metric gazetteer.DistanceMetric) Option {
	return func(e *Engine) {
		e.metric = metric
	}
}

// WithProximityThreshold overrides the pairwise distance ceiling.
func WithProximityThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

func NewEngine(store Store, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		metric:    gazetteer.ManhattanDegrees,
		threshold: gazetteer.DefaultCoordinateThreshold,
		logger:    logger.With().Str("component", "merge").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one merge pass. With apply=false it only plans: the
// returned Result lists every group that would be merged and nothing
// is written. With apply=true each group is merged atomically; a
// failing group is counted and logged but does not stop the pass.
func (e *Engine) Run(ctx context.Context, filter Filter, apply bool) (*Result, error) {
	candidates, err := e.store.ListCandidates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list merge candidates: %w", err)
	}

	groups := e.buildGroups(candidates)
	result := &Result{GroupsConsidered: len(groups)}

	merged := make(map[int64]bool)
	for _, group := range groups {
		members := liveMembers(group.members, merged)
		if len(members) < 2 {
			continue
		}
		if !e.proximityAgrees(members) {
			result.GroupsSkipped++
			e.logger.Debug().
				Str("group", group.key).
				Msg("skipping group, members too far apart")
			continue
		}

		si := pickSurvivor(members)
		plan := GroupPlan{
			Key:        group.key,
			SurvivorID: members[si].PlaceID,
		}
		for i, m := range members {
			if i != si {
				plan.LoserIDs = append(plan.LoserIDs, m.PlaceID)
			}
		}
		if filter.Role != "" {
			plan.MintedID = &MintedID{
				Source: "merge",
				ExtID:  mintExtID(filter.Role, members[si].CountryCode, group.name),
			}
		}

		if apply {
			if err := e.store.MergeGroup(ctx, plan.SurvivorID, plan.LoserIDs, plan.MintedID); err != nil {
				result.GroupsFailed++
				e.logger.Error().Err(err).
					Str("group", group.key).
					Int64("survivor_id", plan.SurvivorID).
					Msg("merge group failed")
				continue
			}
		}
		for _, id := range plan.LoserIDs {
			merged[id] = true
		}
		result.GroupsMerged++
		result.PlacesRemoved += len(plan.LoserIDs)
		result.Plans = append(result.Plans, plan)
	}

	e.logger.Info().
		Bool("apply", apply).
		Int("groups_considered", result.GroupsConsidered).
		Int("groups_merged", result.GroupsMerged).
		Int("groups_skipped", result.GroupsSkipped).
		Int("groups_failed", result.GroupsFailed).
		Int("places_removed", result.PlacesRemoved).
		Msg("merge pass finished")
	return result, nil
}

type group struct {
	key     string
	name    string
	members []Candidate
}

// buildGroups buckets candidates by (country, kind, normalized name).
// Every name a place carries contributes a membership, so "Paris" and
// "paris" land in the same bucket while "Lutetia" opens another.
// Groups are processed in deterministic key order.
func (e *Engine) buildGroups(candidates []Candidate) []group {
	byKey := make(map[string]*group)
	seen := make(map[string]bool)
	for _, cand := range candidates {
		norm := gazetteer.NormalizeName(cand.Name)
		if norm == "" {
			continue
		}
		key := strings.ToUpper(cand.CountryCode) + "|" + cand.Kind + "|" + norm
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key, name: norm}
			byKey[key] = g
		}
		memberKey := fmt.Sprintf("%s|%d", key, cand.PlaceID)
		if seen[memberKey] {
			continue
		}
		seen[memberKey] = true
		g.members = append(g.members, cand)
	}

	keys := make([]string, 0, len(byKey))
	for key, g := range byKey {
		if len(g.members) >= 2 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	groups := make([]group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, *byKey[key])
	}
	return groups
}

// liveMembers drops members already consumed as losers by an earlier
// group in the same pass.
func liveMembers(members []Candidate, merged map[int64]bool) []Candidate {
	live := make([]Candidate, 0, len(members))
	for _, m := range members {
		if !merged[m.PlaceID] {
			live = append(live, m)
		}
	}
	return live
}

// proximityAgrees confirms the group geographically. Members without
// coordinates never veto; a group needs at least two located members
// before distance is checked, and then every located pair must sit
// within the threshold.
func (e *Engine) proximityAgrees(members []Candidate) bool {
	located := make([]Candidate, 0, len(members))
	for _, m := range members {
		if m.Lat != nil && m.Lng != nil {
			located = append(located, m)
		}
	}
	if len(located) < 2 {
		return true
	}
	for i := 0; i < len(located); i++ {
		for j := i + 1; j < len(located); j++ {
			d := e.metric(*located[i].Lat, *located[i].Lng, *located[j].Lat, *located[j].Lng)
			if d > e.threshold {
				return false
			}
		}
	}
	return true
}

// mintExtID builds the stable external id for a role-driven merge,
// e.g. "capital:FR:paris".
func mintExtID(role, countryCode, normalizedName string) string {
	return fmt.Sprintf("%s:%s:%s", role, strings.ToUpper(countryCode), gazetteer.Slug(normalizedName))
}
