package placeschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"atlas.fit/gazetteer/internal/gazetteer"
)

//go:embed place.schema.json
var placeSchemaJSON string

// PlacePayload is the wire shape accepted by the place intake.
type PlacePayload struct {
	PayloadVersion string        `json:"payload_version"`
	Kind           string        `json:"kind"`
	Name           string        `json:"name"`
	CountryCode    *string       `json:"country_code,omitempty"`
	Adm1Code       *string       `json:"adm1_code,omitempty"`
	Adm2Code       *string       `json:"adm2_code,omitempty"`
	Lat            *float64      `json:"lat,omitempty"`
	Lng            *float64      `json:"lng,omitempty"`
	Population     *int64        `json:"population,omitempty"`
	WikidataQID    *string       `json:"wikidata_qid,omitempty"`
	OSMType        *string       `json:"osm_type,omitempty"`
	OSMID          *string       `json:"osm_id,omitempty"`
	GeonamesID     *string       `json:"geonames_id,omitempty"`
	Names          []NamePayload `json:"names,omitempty"`
	ExternalIDs    []ExtPayload  `json:"external_ids,omitempty"`
}

type NamePayload struct {
	Name        string  `json:"name"`
	Lang        *string `json:"lang,omitempty"`
	NameKind    *string `json:"name_kind,omitempty"`
	IsPreferred bool    `json:"is_preferred,omitempty"`
	IsOfficial  bool    `json:"is_official,omitempty"`
}

type ExtPayload struct {
	Source string `json:"source"`
	ExtID  string `json:"ext_id"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidatePlacePayload checks a raw payload against the place schema
// and converts it to the loader input shape. Coordinates must arrive
// as a pair; a lone lat or lng is rejected here rather than half-used
// downstream.
func ValidatePlacePayload(payload json.RawMessage) (*gazetteer.PlaceInput, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var raw PlacePayload
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	return toPlaceInput(&raw)
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("place.schema.json", strings.NewReader(placeSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("place.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func toPlaceInput(raw *PlacePayload) (*gazetteer.PlaceInput, error) {
	kind, err := gazetteer.ParseKind(raw.Kind)
	if err != nil {
		return nil, err
	}
	if (raw.Lat == nil) != (raw.Lng == nil) {
		return nil, fmt.Errorf("lat and lng must be provided together")
	}

	input := &gazetteer.PlaceInput{
		Kind:       kind,
		Name:       strings.TrimSpace(raw.Name),
		Lat:        raw.Lat,
		Lng:        raw.Lng,
		Population: raw.Population,
	}
	if raw.CountryCode != nil {
		input.CountryCode = strings.ToUpper(strings.TrimSpace(*raw.CountryCode))
	}
	if raw.Adm1Code != nil {
		input.Adm1Code = strings.TrimSpace(*raw.Adm1Code)
	}
	if raw.Adm2Code != nil {
		input.Adm2Code = strings.TrimSpace(*raw.Adm2Code)
	}
	if raw.WikidataQID != nil {
		input.WikidataQID = strings.TrimSpace(*raw.WikidataQID)
	}
	if raw.OSMType != nil {
		input.OSMType = *raw.OSMType
	}
	if raw.OSMID != nil {
		id, err := strconv.ParseInt(*raw.OSMID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("osm_id is not numeric: %w", err)
		}
		input.OSMID = id
	}
	if raw.GeonamesID != nil {
		id, err := strconv.ParseInt(*raw.GeonamesID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("geonames_id is not numeric: %w", err)
		}
		input.GeonamesID = id
	}

	for _, name := range raw.Names {
		extra := gazetteer.NameInput{
			Name:        strings.TrimSpace(name.Name),
			NameKind:    gazetteer.NameAlias,
			IsPreferred: name.IsPreferred,
			IsOfficial:  name.IsOfficial,
		}
		if name.Lang != nil {
			extra.Lang = *name.Lang
		}
		if name.NameKind != nil {
			extra.NameKind = gazetteer.NameKind(*name.NameKind)
		}
		input.Names = append(input.Names, extra)
	}
	for _, ext := range raw.ExternalIDs {
		input.ExternalIDs = append(input.ExternalIDs, gazetteer.ExternalID{
			Source: strings.TrimSpace(ext.Source),
			ExtID:  strings.TrimSpace(ext.ExtID),
		})
	}
	return input, nil
}
