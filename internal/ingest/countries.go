package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"atlas.fit/gazetteer/internal/gazetteer"
)

// countryPayload mirrors the countries-API export format: one JSON
// array of country objects.
type countryPayload struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	CCA2       string            `json:"cca2"`
	CCN3       string            `json:"ccn3"`
	Capital    []string          `json:"capital"`
	LatLng     []float64         `json:"latlng"`
	Population int64             `json:"population"`
	Languages  map[string]string `json:"languages"`
	Translations map[string]struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"translations"`
}

// CountryRecord is one parsed country plus its capital names, kept
// separate so the caller can ingest capitals as city inputs and link
// them with capital_of edges.
type CountryRecord struct {
	Place    gazetteer.PlaceInput
	Capitals []string
}

// ParseCountries decodes a countries-API JSON export.
func ParseCountries(r io.Reader) ([]CountryRecord, error) {
	var payload []countryPayload
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode countries JSON: %w", err)
	}

	records := make([]CountryRecord, 0, len(payload))
	for i, entry := range payload {
		common := strings.TrimSpace(entry.Name.Common)
		code := strings.ToUpper(strings.TrimSpace(entry.CCA2))
		if common == "" || code == "" {
			return nil, fmt.Errorf("countries entry %d: name.common and cca2 are required", i)
		}

		input := gazetteer.PlaceInput{
			Kind:        gazetteer.KindCountry,
			Name:        common,
			CountryCode: code,
		}
		if len(entry.LatLng) == 2 {
			lat, lng := entry.LatLng[0], entry.LatLng[1]
			input.Lat = &lat
			input.Lng = &lng
		}
		if entry.Population > 0 {
			population := entry.Population
			input.Population = &population
		}

		if official := strings.TrimSpace(entry.Name.Official); official != "" && official != common {
			input.Names = append(input.Names, gazetteer.NameInput{
				Name:       official,
				NameKind:   gazetteer.NameOfficial,
				IsOfficial: true,
			})
		}
		for lang, translation := range entry.Translations {
			translated := strings.TrimSpace(translation.Common)
			if translated == "" || translated == common {
				continue
			}
			langCode := normalizeTranslationLang(lang)
			input.Names = append(input.Names, gazetteer.NameInput{
				Name:     translated,
				Lang:     langCode,
				NameKind: gazetteer.NameExonym,
			})
		}

		capitals := make([]string, 0, len(entry.Capital))
		for _, capital := range entry.Capital {
			if trimmed := strings.TrimSpace(capital); trimmed != "" {
				capitals = append(capitals, trimmed)
			}
		}

		records = append(records, CountryRecord{Place: input, Capitals: capitals})
	}
	return records, nil
}

// Translation keys in the export are ISO 639-3 ("fra", "deu"); keep
// the two-letter ones and drop the rest rather than mis-tagging.
func normalizeTranslationLang(raw string) string {
	lang := strings.ToLower(strings.TrimSpace(raw))
	if len(lang) == 2 {
		return lang
	}
	return ""
}
