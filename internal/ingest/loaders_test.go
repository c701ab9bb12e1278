package ingest

import (
	"strings"
	"testing"

	"atlas.fit/gazetteer/internal/gazetteer"
)

func TestParseCountries(t *testing.T) {
	t.Parallel()

	const payload = `[
  {
    "name": {"common": "France", "official": "French Republic"},
    "cca2": "FR",
    "capital": ["Paris"],
    "latlng": [46.0, 2.0],
    "population": 67391582,
    "translations": {"de": {"common": "Frankreich"}, "fra": {"common": "France"}}
  }
]`

	records, err := ParseCountries(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("parse countries: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Place.Kind != gazetteer.KindCountry || rec.Place.CountryCode != "FR" {
		t.Fatalf("unexpected place: %+v", rec.Place)
	}
	if rec.Place.Population == nil || *rec.Place.Population != 67391582 {
		t.Fatalf("expected population, got %v", rec.Place.Population)
	}
	if rec.Place.Lat == nil || *rec.Place.Lat != 46.0 {
		t.Fatalf("expected latitude 46.0, got %v", rec.Place.Lat)
	}
	if len(rec.Capitals) != 1 || rec.Capitals[0] != "Paris" {
		t.Fatalf("expected capital Paris, got %v", rec.Capitals)
	}

	var sawOfficial, sawGerman bool
	for _, name := range rec.Place.Names {
		if name.NameKind == gazetteer.NameOfficial && name.Name == "French Republic" {
			sawOfficial = true
		}
		if name.Lang == "de" && name.Name == "Frankreich" {
			sawGerman = true
		}
	}
	if !sawOfficial || !sawGerman {
		t.Fatalf("expected official and translated names, got %+v", rec.Place.Names)
	}
}

func TestParseCountries_RequiresNameAndCode(t *testing.T) {
	t.Parallel()

	if _, err := ParseCountries(strings.NewReader(`[{"name": {"common": "X"}}]`)); err == nil {
		t.Fatalf("expected error for missing cca2")
	}
}

func TestParseWikidata(t *testing.T) {
	t.Parallel()

	const payload = `{
  "results": {
    "bindings": [
      {
        "item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q90"},
        "itemLabel": {"type": "literal", "value": "Paris", "xml:lang": "en"},
        "kind": {"type": "literal", "value": "city"},
        "countryCode": {"type": "literal", "value": "fr"},
        "lat": {"type": "literal", "value": "48.8566"},
        "lng": {"type": "literal", "value": "2.3522"},
        "population": {"type": "literal", "value": "2165423"}
      }
    ]
  }
}`

	inputs, err := ParseWikidata(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("parse wikidata: %v", err)
	}
	if len(inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(inputs))
	}

	input := inputs[0]
	if input.WikidataQID != "Q90" || input.Kind != gazetteer.KindCity || input.CountryCode != "FR" {
		t.Fatalf("unexpected input: %+v", input)
	}
	if input.Lat == nil || *input.Lat != 48.8566 {
		t.Fatalf("expected coordinates, got %v", input.Lat)
	}
	if input.Population == nil || *input.Population != 2165423 {
		t.Fatalf("expected population, got %v", input.Population)
	}
}

func TestParseWikidata_RejectsMalformedQID(t *testing.T) {
	t.Parallel()

	const payload = `{
  "results": {
    "bindings": [
      {
        "item": {"type": "uri", "value": "http://example.com/not-an-entity"},
        "itemLabel": {"type": "literal", "value": "Nowhere"},
        "kind": {"type": "literal", "value": "city"}
      }
    ]
  }
}`

	if _, err := ParseWikidata(strings.NewReader(payload)); err == nil {
		t.Fatalf("expected error for malformed QID")
	}
}

func TestParseOSM(t *testing.T) {
	t.Parallel()

	const payload = `osm_type,osm_id,name,name_en,place,country_code,adm1_code,adm2_code,lat,lon,population,wikidata
relation,71525,Paris,,city,FR,11,75,48.8566,2.3522,2165423,Q90
node,240109189,München,Munich,city,DE,BY,,48.1374,11.5755,1488202,
relation,51477,Deutschland,Germany,country,DE,,,51.0,9.0,83240525,Q183
node,1,Tiny Hamlet,,hamlet,FR,,,1.0,1.0,,
`

	inputs, skipped, err := ParseOSM(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("parse OSM: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("expected 1 skipped row (hamlet), got %d", skipped)
	}
	if len(inputs) != 3 {
		t.Fatalf("expected 3 inputs, got %d", len(inputs))
	}

	paris := inputs[0]
	if paris.OSMType != "relation" || paris.OSMID != 71525 || paris.Kind != gazetteer.KindCity {
		t.Fatalf("unexpected paris row: %+v", paris)
	}
	if paris.WikidataQID != "Q90" {
		t.Fatalf("expected wikidata qid from CSV, got %q", paris.WikidataQID)
	}

	munich := inputs[1]
	if len(munich.Names) != 1 || munich.Names[0].Name != "Munich" || munich.Names[0].Lang != "en" {
		t.Fatalf("expected english exonym for München, got %+v", munich.Names)
	}

	if inputs[2].Kind != gazetteer.KindCountry {
		t.Fatalf("expected country kind for Deutschland, got %q", inputs[2].Kind)
	}
}

func TestParseOSM_RequiresOSMID(t *testing.T) {
	t.Parallel()

	const payload = `osm_type,osm_id,name,name_en,place,country_code,adm1_code,adm2_code,lat,lon,population,wikidata
relation,0,Paris,,city,FR,,,,,,
`
	if _, _, err := ParseOSM(strings.NewReader(payload)); err == nil {
		t.Fatalf("expected error for missing osm_id")
	}
}
