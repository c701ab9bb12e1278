package merge

import "testing"

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }
func ptrS(v string) *string   { return &v }

func TestCanonicalScore_PrefersRichRecords(t *testing.T) {
	t.Parallel()

	rich := Candidate{
		PlaceID:         7,
		Lat:             ptrF(48.85),
		Lng:             ptrF(2.35),
		Population:      ptrI(2_100_000),
		WikidataQID:     ptrS("Q90"),
		ExternalIDCount: 2,
	}
	bare := Candidate{PlaceID: 3}

	if CanonicalScore(rich) <= CanonicalScore(bare) {
		t.Fatalf("rich record scored %d, bare scored %d, want rich > bare",
			CanonicalScore(rich), CanonicalScore(bare))
	}
}

func TestCanonicalScore_TieBreaksOnLowestID(t *testing.T) {
	t.Parallel()

	older := Candidate{PlaceID: 10, Lat: ptrF(1), Lng: ptrF(1)}
	newer := Candidate{PlaceID: 200, Lat: ptrF(1), Lng: ptrF(1)}

	if CanonicalScore(older) <= CanonicalScore(newer) {
		t.Fatalf("equal records should tie-break toward the lower id")
	}
}

func TestPickSurvivor(t *testing.T) {
	t.Parallel()

	members := []Candidate{
		{PlaceID: 1},
		{PlaceID: 2, WikidataQID: ptrS("Q90"), Lat: ptrF(48.85), Lng: ptrF(2.35)},
		{PlaceID: 3, Population: ptrI(100)},
	}
	if got := pickSurvivor(members); got != 1 {
		t.Fatalf("pickSurvivor = %d, want 1", got)
	}
}
