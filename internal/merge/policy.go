package merge

// CanonicalScore ranks candidate rows for survivor selection. The
// weights are load-bearing: fixtures and operator expectations depend
// on this exact ordering, so the policy lives here as one function
// instead of inline arithmetic.
//
//	+1000  has both coordinates
//	 +500  has a wikidata id
//	 +100  has population
//	  +50  has at least one external id
//
// The (10000 - id) term breaks ties toward the lowest, oldest id.
func CanonicalScore(row Candidate) int64 {
	var score int64
	if row.Lat != nil && row.Lng != nil {
		score += 1000
	}
	if row.WikidataQID != nil && *row.WikidataQID != "" {
		score += 500
	}
	if row.Population != nil {
		score += 100
	}
	if row.ExternalIDCount > 0 {
		score += 50
	}
	score += 10000 - row.PlaceID
	return score
}

// pickSurvivor returns the index of the highest-scoring member.
func pickSurvivor(members []Candidate) int {
	best := 0
	bestScore := CanonicalScore(members[0])
	for i := 1; i < len(members); i++ {
		if score := CanonicalScore(members[i]); score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}
