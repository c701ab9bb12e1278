package ingest

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"atlas.fit/gazetteer/internal/gazetteer"
)

type fakeResolver struct {
	match *gazetteer.Match
	last  gazetteer.Candidate
}

func (f *fakeResolver) Resolve(_ context.Context, cand gazetteer.Candidate) (*gazetteer.Match, error) {
	f.last = cand
	return f.match, nil
}

type fakePlaceStore struct {
	created  []NewPlaceRecord
	enriched map[int64]NewPlaceRecord
}

func newFakePlaceStore() *fakePlaceStore {
	return &fakePlaceStore{enriched: map[int64]NewPlaceRecord{}}
}

func (f *fakePlaceStore) CreatePlace(_ context.Context, rec NewPlaceRecord) (CreateResult, error) {
	f.created = append(f.created, rec)
	return CreateResult{PlaceID: int64(100 + len(f.created)), NamesAdded: len(rec.Names)}, nil
}

func (f *fakePlaceStore) EnrichPlace(_ context.Context, placeID int64, rec NewPlaceRecord) (EnrichResult, error) {
	f.enriched[placeID] = rec
	return EnrichResult{Updated: true, NamesAdded: 1}, nil
}

func newTestService(resolver Resolver, store PlaceStore) *Service {
	return NewService(resolver, store, zerolog.Nop(), WithLanguageDetection(false))
}

func TestUpsertPlace_UnresolvedInsertsNewPlace(t *testing.T) {
	t.Parallel()

	store := newFakePlaceStore()
	svc := newTestService(&fakeResolver{}, store)

	lat, lng := 48.8566, 2.3522
	outcome, err := svc.UpsertPlace(context.Background(), "osm", gazetteer.PlaceInput{
		Kind:        gazetteer.KindCity,
		Name:        "Paris",
		CountryCode: "fr",
		Lat:         &lat,
		Lng:         &lng,
		OSMID:       71525,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !outcome.Created {
		t.Fatalf("expected created outcome, got %+v", outcome)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 created record, got %d", len(store.created))
	}

	rec := store.created[0]
	if rec.CountryCode == nil || *rec.CountryCode != "FR" {
		t.Fatalf("expected uppercased country code, got %v", rec.CountryCode)
	}
	if len(rec.Names) != 1 || rec.Names[0].Normalized != "paris" || !rec.Names[0].IsPreferred {
		t.Fatalf("unexpected names: %+v", rec.Names)
	}
	if len(rec.ExternalIDs) != 1 || rec.ExternalIDs[0].ExtID != "relation/71525" {
		t.Fatalf("expected osm external id relation/71525, got %+v", rec.ExternalIDs)
	}
}

func TestUpsertPlace_ResolvedEnrichesExisting(t *testing.T) {
	t.Parallel()

	store := newFakePlaceStore()
	resolver := &fakeResolver{match: &gazetteer.Match{PlaceID: 42, Strategy: gazetteer.StrategyWikidata}}
	svc := newTestService(resolver, store)

	outcome, err := svc.UpsertPlace(context.Background(), "wikidata", gazetteer.PlaceInput{
		Kind:        gazetteer.KindCountry,
		Name:        "France",
		CountryCode: "FR",
		WikidataQID: "Q142",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if outcome.Created {
		t.Fatalf("expected enrich outcome for resolved place")
	}
	if outcome.PlaceID != 42 || outcome.Strategy != gazetteer.StrategyWikidata {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if _, ok := store.enriched[42]; !ok {
		t.Fatalf("expected place 42 to be enriched")
	}
	if resolver.last.NormalizedName != "france" {
		t.Fatalf("expected normalized candidate name, got %q", resolver.last.NormalizedName)
	}
}

func TestUpsertPlace_ValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeResolver{}, newFakePlaceStore())

	if _, err := svc.UpsertPlace(context.Background(), "", gazetteer.PlaceInput{Kind: gazetteer.KindCity, Name: "X"}); err == nil {
		t.Fatalf("expected error for blank source")
	}
	if _, err := svc.UpsertPlace(context.Background(), "osm", gazetteer.PlaceInput{Name: "X"}); err == nil {
		t.Fatalf("expected error for missing kind")
	}
	if _, err := svc.UpsertPlace(context.Background(), "osm", gazetteer.PlaceInput{Kind: gazetteer.KindCity}); err == nil {
		t.Fatalf("expected error for missing name")
	}
}

func TestUpsertPlace_WikidataQIDBecomesExternalID(t *testing.T) {
	t.Parallel()

	store := newFakePlaceStore()
	svc := newTestService(&fakeResolver{}, store)

	if _, err := svc.UpsertPlace(context.Background(), "wikidata", gazetteer.PlaceInput{
		Kind:        gazetteer.KindCity,
		Name:        "Berlin",
		CountryCode: "DE",
		WikidataQID: "Q64",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec := store.created[0]
	found := false
	for _, ext := range rec.ExternalIDs {
		if ext.Source == "wikidata" && ext.ExtID == "Q64" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected wikidata external id, got %+v", rec.ExternalIDs)
	}
}
