package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"atlas.fit/gazetteer/internal/gazetteer"
	"atlas.fit/gazetteer/internal/langdetect"
)

// NewPlaceRecord is the storage-ready form of one incoming place.
type NewPlaceRecord struct {
	Kind        gazetteer.Kind
	CountryCode *string
	Adm1Code    *string
	Adm2Code    *string
	Lat         *float64
	Lng         *float64
	Population  *int64
	WikidataQID *string
	Source      string
	Names       []NewNameRecord
	ExternalIDs []gazetteer.ExternalID
}

// NewNameRecord is one name row to attach.
type NewNameRecord struct {
	Name        string
	Normalized  string
	Lang        *string
	NameKind    gazetteer.NameKind
	IsPreferred bool
	IsOfficial  bool
}

// CreateResult reports one place insert.
type CreateResult struct {
	PlaceID    int64
	NamesAdded int
}

// EnrichResult reports a fill-in update against a resolved place.
type EnrichResult struct {
	Updated    bool
	NamesAdded int
}

// PlaceStore persists resolved and unresolved candidates. Each method
// is one atomic transaction. EnrichPlace only fills absent fields and
// appends names not already present under (normalized, lang, name_kind).
type PlaceStore interface {
	CreatePlace(ctx context.Context, rec NewPlaceRecord) (CreateResult, error)
	EnrichPlace(ctx context.Context, placeID int64, rec NewPlaceRecord) (EnrichResult, error)
}

// Resolver is the identity-resolution surface the service consumes.
type Resolver interface {
	Resolve(ctx context.Context, cand gazetteer.Candidate) (*gazetteer.Match, error)
}

// Service feeds incoming place descriptions through identity
// resolution and into the store.
type Service struct {
	resolver   Resolver
	store      PlaceStore
	logger     zerolog.Logger
	detectLang bool
}

type ServiceOption func(*Service)

// WithLanguageDetection toggles lang assignment for names arriving
// without one.
func WithLanguageDetection(enabled bool) ServiceOption {
	return func(s *Service) {
		s.detectLang = enabled
	}
}

func NewService(resolver Resolver, store PlaceStore, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		resolver:   resolver,
		store:      store,
		logger:     logger,
		detectLang: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertOutcome reports what happened to one input.
type UpsertOutcome struct {
	PlaceID    int64
	Created    bool
	Strategy   string
	NamesAdded int
}

// UpsertPlace resolves an input against the store and either enriches
// the matched place or inserts a new one. An exhausted resolver
// cascade is the insert path, not an error.
func (s *Service) UpsertPlace(ctx context.Context, source string, input gazetteer.PlaceInput) (UpsertOutcome, error) {
	if s == nil || s.resolver == nil || s.store == nil {
		return UpsertOutcome{}, fmt.Errorf("ingest service is not initialized")
	}

	source = strings.TrimSpace(source)
	if source == "" {
		return UpsertOutcome{}, fmt.Errorf("source is required")
	}
	if input.Kind == "" {
		return UpsertOutcome{}, fmt.Errorf("kind is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return UpsertOutcome{}, fmt.Errorf("name is required")
	}

	rec := s.buildRecord(source, input)

	match, err := s.resolver.Resolve(ctx, candidateFromInput(input))
	if err != nil {
		return UpsertOutcome{}, fmt.Errorf("resolve %s %q: %w", input.Kind, input.Name, err)
	}

	if match != nil {
		enriched, err := s.store.EnrichPlace(ctx, match.PlaceID, rec)
		if err != nil {
			return UpsertOutcome{}, fmt.Errorf("enrich place %d: %w", match.PlaceID, err)
		}
		s.logger.Debug().
			Int64("place_id", match.PlaceID).
			Str("strategy", match.Strategy).
			Int("names_added", enriched.NamesAdded).
			Msg("resolved existing place")
		return UpsertOutcome{
			PlaceID:    match.PlaceID,
			Strategy:   match.Strategy,
			NamesAdded: enriched.NamesAdded,
		}, nil
	}

	created, err := s.store.CreatePlace(ctx, rec)
	if err != nil {
		return UpsertOutcome{}, fmt.Errorf("create place %q: %w", input.Name, err)
	}
	s.logger.Debug().
		Int64("place_id", created.PlaceID).
		Str("kind", string(input.Kind)).
		Str("name", input.Name).
		Msg("inserted new place")
	return UpsertOutcome{
		PlaceID:    created.PlaceID,
		Created:    true,
		NamesAdded: created.NamesAdded,
	}, nil
}

func (s *Service) buildRecord(source string, input gazetteer.PlaceInput) NewPlaceRecord {
	rec := NewPlaceRecord{
		Kind:        input.Kind,
		CountryCode: upperPtr(input.CountryCode),
		Adm1Code:    nullableString(input.Adm1Code),
		Adm2Code:    nullableString(input.Adm2Code),
		Lat:         input.Lat,
		Lng:         input.Lng,
		Population:  input.Population,
		WikidataQID: nullableString(input.WikidataQID),
		Source:      source,
	}

	rec.Names = append(rec.Names, s.buildName(gazetteer.NameInput{
		Name:        input.Name,
		NameKind:    gazetteer.NameCommon,
		IsPreferred: true,
	}))
	for _, name := range input.Names {
		if strings.TrimSpace(name.Name) == "" {
			continue
		}
		rec.Names = append(rec.Names, s.buildName(name))
	}

	rec.ExternalIDs = append(rec.ExternalIDs, input.ExternalIDs...)
	if qid := strings.TrimSpace(input.WikidataQID); qid != "" {
		rec.ExternalIDs = append(rec.ExternalIDs, gazetteer.ExternalID{Source: "wikidata", ExtID: qid})
	}
	if input.OSMID != 0 {
		osmType := strings.TrimSpace(strings.ToLower(input.OSMType))
		if osmType == "" {
			osmType = "relation"
		}
		rec.ExternalIDs = append(rec.ExternalIDs, gazetteer.ExternalID{
			Source: "osm",
			ExtID:  fmt.Sprintf("%s/%d", osmType, input.OSMID),
		})
	}
	if input.GeonamesID != 0 {
		rec.ExternalIDs = append(rec.ExternalIDs, gazetteer.ExternalID{
			Source: "geonames",
			ExtID:  fmt.Sprintf("%d", input.GeonamesID),
		})
	}

	return rec
}

func (s *Service) buildName(input gazetteer.NameInput) NewNameRecord {
	kind := input.NameKind
	if kind == "" {
		kind = gazetteer.NameCommon
	}

	lang := nullableString(input.Lang)
	if lang == nil && s.detectLang {
		if detected := langdetect.DetectISO6391(input.Name); detected != "" {
			lang = &detected
		}
	}

	return NewNameRecord{
		Name:        strings.TrimSpace(input.Name),
		Normalized:  gazetteer.NormalizeName(input.Name),
		Lang:        lang,
		NameKind:    kind,
		IsPreferred: input.IsPreferred,
		IsOfficial:  input.IsOfficial,
	}
}

func candidateFromInput(input gazetteer.PlaceInput) gazetteer.Candidate {
	return gazetteer.Candidate{
		Kind:           input.Kind,
		WikidataQID:    input.WikidataQID,
		OSMType:        input.OSMType,
		OSMID:          input.OSMID,
		GeonamesID:     input.GeonamesID,
		CountryCode:    input.CountryCode,
		Adm1Code:       input.Adm1Code,
		Adm2Code:       input.Adm2Code,
		NormalizedName: gazetteer.NormalizeName(input.Name),
		Lat:            input.Lat,
		Lng:            input.Lng,
	}
}

func nullableString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func upperPtr(value string) *string {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
