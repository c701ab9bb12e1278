package gazetteer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Lookup is the read surface the resolver needs, one method per query.
type Lookup interface {
	PlaceIDByWikidataQID(ctx context.Context, qid string) (int64, bool, error)
	PlaceIDByExternalID(ctx context.Context, source, extID string) (int64, bool, error)
	CountryIDByCode(ctx context.Context, countryCode string) (int64, bool, error)
	RegionIDByAdminCodes(ctx context.Context, countryCode, adm1Code, adm2Code string) (int64, bool, error)
	CitiesByName(ctx context.Context, countryCode, normalizedName string) ([]PlacePoint, error)
	PlacesWithCoords(ctx context.Context, kind Kind, countryCode string) ([]PlacePoint, error)
}

// Resolver maps incoming place descriptions onto existing canonical
// place ids via a strict-order strategy cascade. A nil result with a
// nil error means no tier matched and the caller should insert.
type Resolver struct {
	lookup    Lookup
	metric    DistanceMetric
	threshold float64
	logger    zerolog.Logger
}

type ResolverOption func(*Resolver)

// WithDistanceMetric replaces the default Manhattan-degrees metric.
func WithDistanceMetric(metric DistanceMetric) ResolverOption {
	return func(r *Resolver) {
		if metric != nil {
			r.metric = metric
		}
	}
}

// WithCoordinateThreshold sets the threshold used for candidates that
// do not carry their own.
func WithCoordinateThreshold(threshold float64) ResolverOption {
	return func(r *Resolver) {
		if threshold > 0 {
			r.threshold = threshold
		}
	}
}

func NewResolver(lookup Lookup, logger zerolog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lookup:    lookup,
		metric:    ManhattanDegrees,
		threshold: DefaultCoordinateThreshold,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks the cascade; the first tier that produces a hit wins.
func (r *Resolver) Resolve(ctx context.Context, cand Candidate) (*Match, error) {
	if r == nil || r.lookup == nil {
		return nil, fmt.Errorf("resolver is not initialized")
	}

	threshold := cand.CoordinateThreshold
	if threshold <= 0 {
		threshold = r.threshold
	}

	if match, err := r.resolveByWikidata(ctx, cand); match != nil || err != nil {
		return match, err
	}
	if match, err := r.resolveByOSM(ctx, cand); match != nil || err != nil {
		return match, err
	}
	if match, err := r.resolveByGeonames(ctx, cand); match != nil || err != nil {
		return match, err
	}
	if match, err := r.resolveByCountryCode(ctx, cand); match != nil || err != nil {
		return match, err
	}
	if match, err := r.resolveByAdminCodes(ctx, cand); match != nil || err != nil {
		return match, err
	}
	if match, err := r.resolveByCityName(ctx, cand, threshold); match != nil || err != nil {
		return match, err
	}
	if match, err := r.resolveByProximity(ctx, cand, threshold); match != nil || err != nil {
		return match, err
	}

	return nil, nil
}

func (r *Resolver) resolveByWikidata(ctx context.Context, cand Candidate) (*Match, error) {
	qid := strings.TrimSpace(cand.WikidataQID)
	if qid == "" {
		return nil, nil
	}

	id, found, err := r.lookup.PlaceIDByWikidataQID(ctx, qid)
	if err != nil {
		return nil, fmt.Errorf("lookup wikidata qid %q: %w", qid, err)
	}
	if found {
		return &Match{PlaceID: id, Strategy: StrategyWikidata}, nil
	}

	id, found, err = r.lookup.PlaceIDByExternalID(ctx, "wikidata", qid)
	if err != nil {
		return nil, fmt.Errorf("lookup wikidata external id %q: %w", qid, err)
	}
	if found {
		return &Match{PlaceID: id, Strategy: StrategyWikidata}, nil
	}
	return nil, nil
}

func (r *Resolver) resolveByOSM(ctx context.Context, cand Candidate) (*Match, error) {
	if cand.OSMID == 0 {
		return nil, nil
	}

	osmType := strings.TrimSpace(strings.ToLower(cand.OSMType))
	if osmType == "" {
		osmType = "relation"
	}
	extID := fmt.Sprintf("%s/%d", osmType, cand.OSMID)

	id, found, err := r.lookup.PlaceIDByExternalID(ctx, "osm", extID)
	if err != nil {
		return nil, fmt.Errorf("lookup osm external id %q: %w", extID, err)
	}
	if found {
		return &Match{PlaceID: id, Strategy: StrategyOSM}, nil
	}
	return nil, nil
}

func (r *Resolver) resolveByGeonames(ctx context.Context, cand Candidate) (*Match, error) {
	if cand.GeonamesID == 0 {
		return nil, nil
	}

	extID := strconv.FormatInt(cand.GeonamesID, 10)
	id, found, err := r.lookup.PlaceIDByExternalID(ctx, "geonames", extID)
	if err != nil {
		return nil, fmt.Errorf("lookup geonames external id %q: %w", extID, err)
	}
	if found {
		return &Match{PlaceID: id, Strategy: StrategyGeonames}, nil
	}
	return nil, nil
}

func (r *Resolver) resolveByCountryCode(ctx context.Context, cand Candidate) (*Match, error) {
	if cand.Kind != KindCountry || strings.TrimSpace(cand.CountryCode) == "" {
		return nil, nil
	}

	id, found, err := r.lookup.CountryIDByCode(ctx, strings.ToUpper(strings.TrimSpace(cand.CountryCode)))
	if err != nil {
		return nil, fmt.Errorf("lookup country code %q: %w", cand.CountryCode, err)
	}
	if found {
		return &Match{PlaceID: id, Strategy: StrategyCountry}, nil
	}
	return nil, nil
}

func (r *Resolver) resolveByAdminCodes(ctx context.Context, cand Candidate) (*Match, error) {
	if cand.Kind != KindRegion {
		return nil, nil
	}
	country := strings.ToUpper(strings.TrimSpace(cand.CountryCode))
	adm1 := strings.TrimSpace(cand.Adm1Code)
	if country == "" || adm1 == "" {
		return nil, nil
	}

	id, found, err := r.lookup.RegionIDByAdminCodes(ctx, country, adm1, strings.TrimSpace(cand.Adm2Code))
	if err != nil {
		return nil, fmt.Errorf("lookup admin codes %s/%s: %w", country, adm1, err)
	}
	if found {
		return &Match{PlaceID: id, Strategy: StrategyAdminCode}, nil
	}
	return nil, nil
}

// resolveByCityName confirms a country+name hit with coordinates when
// both sides carry them. Disagreement beyond the threshold falls
// through to the next tier: the same name may belong to a different
// city entirely.
func (r *Resolver) resolveByCityName(ctx context.Context, cand Candidate, threshold float64) (*Match, error) {
	if cand.Kind != KindCity {
		return nil, nil
	}
	country := strings.ToUpper(strings.TrimSpace(cand.CountryCode))
	name := strings.TrimSpace(cand.NormalizedName)
	if country == "" || name == "" {
		return nil, nil
	}

	rows, err := r.lookup.CitiesByName(ctx, country, name)
	if err != nil {
		return nil, fmt.Errorf("lookup city name %q in %s: %w", name, country, err)
	}

	for _, row := range rows {
		if !cand.HasCoords() || !row.HasCoords() {
			return &Match{PlaceID: row.ID, Strategy: StrategyName}, nil
		}
		if r.metric(*cand.Lat, *cand.Lng, *row.Lat, *row.Lng) < threshold {
			return &Match{PlaceID: row.ID, Strategy: StrategyName}, nil
		}
		r.logger.Debug().
			Int64("place_id", row.ID).
			Str("name", name).
			Str("country", country).
			Msg("name match rejected by coordinate check, falling through")
	}
	return nil, nil
}

func (r *Resolver) resolveByProximity(ctx context.Context, cand Candidate, threshold float64) (*Match, error) {
	if !cand.HasCoords() {
		return nil, nil
	}
	country := strings.ToUpper(strings.TrimSpace(cand.CountryCode))
	if country == "" || cand.Kind == "" {
		return nil, nil
	}

	rows, err := r.lookup.PlacesWithCoords(ctx, cand.Kind, country)
	if err != nil {
		return nil, fmt.Errorf("lookup %s places with coords in %s: %w", cand.Kind, country, err)
	}

	var best *PlacePoint
	bestDistance := 0.0
	for i := range rows {
		row := rows[i]
		if !row.HasCoords() {
			continue
		}
		distance := r.metric(*cand.Lat, *cand.Lng, *row.Lat, *row.Lng)
		if best == nil || distance < bestDistance {
			best = &rows[i]
			bestDistance = distance
		}
	}

	if best != nil && bestDistance < threshold {
		return &Match{PlaceID: best.ID, Strategy: StrategyProximity}, nil
	}
	return nil, nil
}
