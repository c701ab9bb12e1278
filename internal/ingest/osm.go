package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"

	"atlas.fit/gazetteer/internal/gazetteer"
)

// osmRow maps one line of an OSM places CSV export.
type osmRow struct {
	OSMType     string   `csv:"osm_type"`
	OSMID       int64    `csv:"osm_id"`
	Name        string   `csv:"name"`
	NameEN      string   `csv:"name_en,omitempty"`
	Place       string   `csv:"place"`
	CountryCode string   `csv:"country_code"`
	Adm1Code    string   `csv:"adm1_code,omitempty"`
	Adm2Code    string   `csv:"adm2_code,omitempty"`
	Lat         *float64 `csv:"lat,omitempty"`
	Lng         *float64 `csv:"lon,omitempty"`
	Population  *int64   `csv:"population,omitempty"`
	WikidataQID string   `csv:"wikidata,omitempty"`
}

// osmPlaceKinds maps OSM place tags onto gazetteer kinds. Tags outside
// this table (hamlet, locality, ...) are below ingestion granularity.
var osmPlaceKinds = map[string]gazetteer.Kind{
	"country": gazetteer.KindCountry,
	"state":   gazetteer.KindRegion,
	"region":  gazetteer.KindRegion,
	"county":  gazetteer.KindRegion,
	"city":    gazetteer.KindCity,
	"town":    gazetteer.KindCity,
	"village": gazetteer.KindCity,
}

// ParseOSM decodes an OSM CSV export. Rows with unmapped place tags
// are skipped and counted; malformed CSV fails the whole parse.
func ParseOSM(r io.Reader) ([]gazetteer.PlaceInput, int, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true

	decoder, err := csvutil.NewDecoder(csvReader)
	if err != nil {
		return nil, 0, fmt.Errorf("read OSM CSV header: %w", err)
	}

	var inputs []gazetteer.PlaceInput
	skipped := 0
	for line := 1; ; line++ {
		var row osmRow
		if err := decoder.Decode(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("decode OSM CSV row %d: %w", line, err)
		}

		kind, ok := osmPlaceKinds[strings.ToLower(strings.TrimSpace(row.Place))]
		if !ok {
			skipped++
			continue
		}

		name := strings.TrimSpace(row.Name)
		if name == "" {
			return nil, 0, fmt.Errorf("OSM CSV row %d: name is required", line)
		}
		if row.OSMID == 0 {
			return nil, 0, fmt.Errorf("OSM CSV row %d (%s): osm_id is required", line, name)
		}

		input := gazetteer.PlaceInput{
			Kind:        kind,
			Name:        name,
			CountryCode: strings.ToUpper(strings.TrimSpace(row.CountryCode)),
			Adm1Code:    strings.TrimSpace(row.Adm1Code),
			Adm2Code:    strings.TrimSpace(row.Adm2Code),
			Lat:         row.Lat,
			Lng:         row.Lng,
			Population:  row.Population,
			WikidataQID: strings.TrimSpace(row.WikidataQID),
			OSMType:     strings.ToLower(strings.TrimSpace(row.OSMType)),
			OSMID:       row.OSMID,
		}
		if english := strings.TrimSpace(row.NameEN); english != "" && english != name {
			input.Names = append(input.Names, gazetteer.NameInput{
				Name:     english,
				Lang:     "en",
				NameKind: gazetteer.NameExonym,
			})
		}

		inputs = append(inputs, input)
	}
	return inputs, skipped, nil
}
