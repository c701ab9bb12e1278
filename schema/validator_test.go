package placeschema

import (
	"encoding/json"
	"testing"
)

func TestValidatePlacePayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"kind":"city",
		"name":"Paris",
		"country_code":"fr",
		"adm1_code":"IDF",
		"lat":48.8566,
		"lng":2.3522,
		"population":2102650,
		"wikidata_qid":"Q90",
		"osm_type":"relation",
		"osm_id":"71525",
		"names":[
			{"name":"Lutetia","name_kind":"alias"},
			{"name":"Paris","lang":"fr","name_kind":"endonym","is_preferred":true}
		],
		"external_ids":[
			{"source":"geonames","ext_id":"2988507"}
		]
	}`)

	input, err := ValidatePlacePayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if input.Kind != "city" {
		t.Fatalf("expected kind=city, got %q", input.Kind)
	}
	if input.CountryCode != "FR" {
		t.Fatalf("expected country code uppercased, got %q", input.CountryCode)
	}
	if input.OSMID != 71525 {
		t.Fatalf("expected osm_id=71525, got %d", input.OSMID)
	}
	if len(input.Names) != 2 || input.Names[1].NameKind != "endonym" {
		t.Fatalf("unexpected names: %+v", input.Names)
	}
}

func TestValidatePlacePayload_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"kind":"city"
	}`)

	_, err := ValidatePlacePayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for missing name")
	}
}

func TestValidatePlacePayload_BadQID(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"kind":"country",
		"name":"France",
		"wikidata_qid":"90"
	}`)

	_, err := ValidatePlacePayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for malformed wikidata_qid")
	}
}

func TestValidatePlacePayload_LoneLatitude(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"kind":"city",
		"name":"Nowhere",
		"lat":10.0
	}`)

	_, err := ValidatePlacePayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for lat without lng")
	}
}

func TestValidatePlacePayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v1","kind":"city","name":"Paris"}{}`)

	_, err := ValidatePlacePayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for trailing JSON")
	}
}

func TestValidatePlacePayload_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"kind":"city",
		"name":"Paris",
		"mayor":"unknown"
	}`)

	_, err := ValidatePlacePayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for unknown field")
	}
}
