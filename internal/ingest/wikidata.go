package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"atlas.fit/gazetteer/internal/gazetteer"
)

// sparqlResponse mirrors the W3C SPARQL JSON results format produced
// by the knowledge-graph endpoint.
type sparqlResponse struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

type sparqlValue struct {
	Type    string `json:"type"`
	Value   string `json:"value"`
	XMLLang string `json:"xml:lang"`
}

// Expected binding variables: item (entity URI), itemLabel, kind,
// countryCode, adm1Code, adm2Code, lat, lng, population.
const wikidataEntityPrefix = "http://www.wikidata.org/entity/"

// ParseWikidata decodes SPARQL query results into place inputs. Rows
// without a resolvable QID or label are rejected, not skipped: a
// malformed export should fail loudly before any write.
func ParseWikidata(r io.Reader) ([]gazetteer.PlaceInput, error) {
	var payload sparqlResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode SPARQL JSON: %w", err)
	}

	inputs := make([]gazetteer.PlaceInput, 0, len(payload.Results.Bindings))
	for i, binding := range payload.Results.Bindings {
		qid := qidFromBinding(binding)
		if qid == "" {
			return nil, fmt.Errorf("SPARQL binding %d: missing or malformed item QID", i)
		}
		label := strings.TrimSpace(binding["itemLabel"].Value)
		if label == "" {
			return nil, fmt.Errorf("SPARQL binding %d (%s): missing itemLabel", i, qid)
		}

		kind, err := gazetteer.ParseKind(binding["kind"].Value)
		if err != nil {
			return nil, fmt.Errorf("SPARQL binding %d (%s): %w", i, qid, err)
		}

		input := gazetteer.PlaceInput{
			Kind:        kind,
			Name:        label,
			CountryCode: strings.ToUpper(strings.TrimSpace(binding["countryCode"].Value)),
			Adm1Code:    strings.TrimSpace(binding["adm1Code"].Value),
			Adm2Code:    strings.TrimSpace(binding["adm2Code"].Value),
			WikidataQID: qid,
		}
		if lang := strings.TrimSpace(binding["itemLabel"].XMLLang); lang != "" {
			input.Names = append(input.Names, gazetteer.NameInput{
				Name:        label,
				Lang:        lang,
				NameKind:    gazetteer.NameCommon,
				IsPreferred: true,
			})
		}

		if lat, ok := floatFromBinding(binding, "lat"); ok {
			if lng, ok := floatFromBinding(binding, "lng"); ok {
				input.Lat = &lat
				input.Lng = &lng
			}
		}
		if population, ok := intFromBinding(binding, "population"); ok && population > 0 {
			input.Population = &population
		}

		inputs = append(inputs, input)
	}
	return inputs, nil
}

func qidFromBinding(binding map[string]sparqlValue) string {
	item := strings.TrimSpace(binding["item"].Value)
	if item == "" {
		return ""
	}
	qid := strings.TrimPrefix(item, wikidataEntityPrefix)
	if qid == item && !strings.HasPrefix(qid, "Q") {
		return ""
	}
	if !strings.HasPrefix(qid, "Q") {
		return ""
	}
	return qid
}

func floatFromBinding(binding map[string]sparqlValue, key string) (float64, bool) {
	raw := strings.TrimSpace(binding[key].Value)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func intFromBinding(binding map[string]sparqlValue, key string) (int64, bool) {
	raw := strings.TrimSpace(binding[key].Value)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
