package gazetteer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

type fakeLookup struct {
	wikidata    map[string]int64
	externalIDs map[string]int64 // "source|ext_id"
	countries   map[string]int64
	regions     map[string]int64 // "CC|adm1|adm2"
	cities      map[string][]PlacePoint
	withCoords  map[string][]PlacePoint // "kind|CC"
}

func (f *fakeLookup) PlaceIDByWikidataQID(_ context.Context, qid string) (int64, bool, error) {
	id, ok := f.wikidata[qid]
	return id, ok, nil
}

func (f *fakeLookup) PlaceIDByExternalID(_ context.Context, source, extID string) (int64, bool, error) {
	id, ok := f.externalIDs[source+"|"+extID]
	return id, ok, nil
}

func (f *fakeLookup) CountryIDByCode(_ context.Context, code string) (int64, bool, error) {
	id, ok := f.countries[code]
	return id, ok, nil
}

func (f *fakeLookup) RegionIDByAdminCodes(_ context.Context, country, adm1, adm2 string) (int64, bool, error) {
	id, ok := f.regions[country+"|"+adm1+"|"+adm2]
	if !ok && adm2 != "" {
		id, ok = f.regions[country+"|"+adm1+"|"]
	}
	return id, ok, nil
}

func (f *fakeLookup) CitiesByName(_ context.Context, country, normalized string) ([]PlacePoint, error) {
	return f.cities[country+"|"+normalized], nil
}

func (f *fakeLookup) PlacesWithCoords(_ context.Context, kind Kind, country string) ([]PlacePoint, error) {
	return f.withCoords[string(kind)+"|"+country], nil
}

func ptr(v float64) *float64 { return &v }

func newTestResolver(lookup Lookup) *Resolver {
	return NewResolver(lookup, zerolog.Nop())
}

func TestResolve_WikidataWinsOverProximity(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		wikidata: map[string]int64{"Q90": 11},
		withCoords: map[string][]PlacePoint{
			"city|FR": {{ID: 22, Lat: ptr(48.8566), Lng: ptr(2.3522)}},
		},
	}

	match, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{
		Kind:        KindCity,
		WikidataQID: "Q90",
		CountryCode: "FR",
		Lat:         ptr(48.8566),
		Lng:         ptr(2.3522),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match == nil || match.PlaceID != 11 || match.Strategy != StrategyWikidata {
		t.Fatalf("expected wikidata match on 11, got %+v", match)
	}
}

func TestResolve_WikidataFallsBackToExternalIDTable(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		externalIDs: map[string]int64{"wikidata|Q64": 7},
	}

	match, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{WikidataQID: "Q64"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match == nil || match.PlaceID != 7 || match.Strategy != StrategyWikidata {
		t.Fatalf("expected external-id wikidata match on 7, got %+v", match)
	}
}

func TestResolve_OSMDefaultsToRelationType(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		externalIDs: map[string]int64{"osm|relation/62422": 5},
	}

	match, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{OSMID: 62422})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match == nil || match.PlaceID != 5 || match.Strategy != StrategyOSM {
		t.Fatalf("expected osm match on 5, got %+v", match)
	}
}

func TestResolve_GeonamesID(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		externalIDs: map[string]int64{"geonames|2988507": 9},
	}

	match, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{GeonamesID: 2988507})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match == nil || match.PlaceID != 9 || match.Strategy != StrategyGeonames {
		t.Fatalf("expected geonames match on 9, got %+v", match)
	}
}

func TestResolve_CountryCodeOnlyForCountryKind(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{countries: map[string]int64{"FR": 1}}

	match, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{
		Kind:        KindCountry,
		CountryCode: "fr",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match == nil || match.PlaceID != 1 || match.Strategy != StrategyCountry {
		t.Fatalf("expected country match on 1, got %+v", match)
	}

	cityMatch, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{
		Kind:        KindCity,
		CountryCode: "FR",
	})
	if err != nil {
		t.Fatalf("resolve city: %v", err)
	}
	if cityMatch != nil {
		t.Fatalf("country-code tier must not fire for cities, got %+v", cityMatch)
	}
}

func TestResolve_RegionAdminCodes(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		regions: map[string]int64{"FR|11|": 31, "FR|11|75": 32},
	}

	match, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{
		Kind:        KindRegion,
		CountryCode: "FR",
		Adm1Code:    "11",
		Adm2Code:    "75",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match == nil || match.PlaceID != 32 || match.Strategy != StrategyAdminCode {
		t.Fatalf("expected adm2-refined match on 32, got %+v", match)
	}
}

func TestResolve_CityNameWithoutCoordsAcceptsAsIs(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		cities: map[string][]PlacePoint{"FR|paris": {{ID: 44}}},
	}

	match, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{
		Kind:           KindCity,
		CountryCode:    "FR",
		NormalizedName: "paris",
		Lat:            ptr(48.85),
		Lng:            ptr(2.35),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match == nil || match.PlaceID != 44 || match.Strategy != StrategyName {
		t.Fatalf("expected name match on 44, got %+v", match)
	}
}

func TestResolve_CityNameCoordinateDisagreementFallsThrough(t *testing.T) {
	t.Parallel()

	// Same name, far-apart coordinates: the name tier must fall
	// through instead of rejecting, and proximity picks nothing.
	lookup := &fakeLookup{
		cities: map[string][]PlacePoint{
			"US|springfield": {{ID: 50, Lat: ptr(39.8), Lng: ptr(-89.6)}},
		},
		withCoords: map[string][]PlacePoint{
			"city|US": {{ID: 50, Lat: ptr(39.8), Lng: ptr(-89.6)}},
		},
	}

	match, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{
		Kind:           KindCity,
		CountryCode:    "US",
		NormalizedName: "springfield",
		Lat:            ptr(42.1),
		Lng:            ptr(-72.5),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match != nil {
		t.Fatalf("expected no match for distant same-name city, got %+v", match)
	}
}

func TestResolve_ProximityPicksNearestBelowThreshold(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		withCoords: map[string][]PlacePoint{
			"city|FR": {
				{ID: 60, Lat: ptr(48.8566), Lng: ptr(2.3522)},
				{ID: 61, Lat: ptr(48.86), Lng: ptr(2.36)},
			},
		},
	}

	match, err := newTestResolver(lookup).Resolve(context.Background(), Candidate{
		Kind:        KindCity,
		CountryCode: "FR",
		Lat:         ptr(48.857),
		Lng:         ptr(2.353),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match == nil || match.PlaceID != 60 || match.Strategy != StrategyProximity {
		t.Fatalf("expected proximity match on 60, got %+v", match)
	}
}

func TestResolve_ProximityBoundaryIsStrict(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		withCoords: map[string][]PlacePoint{
			"city|FR": {{ID: 70, Lat: ptr(10.0), Lng: ptr(10.0)}},
		},
	}
	resolver := newTestResolver(lookup)

	// Exactly at the threshold: no match.
	atBoundary, err := resolver.Resolve(context.Background(), Candidate{
		Kind:                KindCity,
		CountryCode:         "FR",
		Lat:                 ptr(10.03),
		Lng:                 ptr(10.02),
		CoordinateThreshold: 0.05,
	})
	if err != nil {
		t.Fatalf("resolve at boundary: %v", err)
	}
	if atBoundary != nil {
		t.Fatalf("distance == threshold must not match, got %+v", atBoundary)
	}

	// Just inside: match.
	inside, err := resolver.Resolve(context.Background(), Candidate{
		Kind:                KindCity,
		CountryCode:         "FR",
		Lat:                 ptr(10.03),
		Lng:                 ptr(10.0199),
		CoordinateThreshold: 0.05,
	})
	if err != nil {
		t.Fatalf("resolve inside boundary: %v", err)
	}
	if inside == nil || inside.PlaceID != 70 {
		t.Fatalf("distance < threshold must match, got %+v", inside)
	}
}

func TestResolve_ExhaustedCascadeReturnsNil(t *testing.T) {
	t.Parallel()

	match, err := newTestResolver(&fakeLookup{}).Resolve(context.Background(), Candidate{
		Kind:           KindCity,
		CountryCode:    "DE",
		NormalizedName: "neustadt",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match != nil {
		t.Fatalf("expected nil match after exhausted cascade, got %+v", match)
	}
}
