package gazetteer

import (
	"fmt"
	"strings"
)

// Kind classifies a gazetteer entity.
type Kind string

const (
	KindCountry Kind = "country"
	KindRegion  Kind = "region"
	KindCity    Kind = "city"
	KindTopic   Kind = "topic"
)

// ParseKind validates a user-supplied kind string.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.TrimSpace(strings.ToLower(raw))) {
	case KindCountry:
		return KindCountry, nil
	case KindRegion:
		return KindRegion, nil
	case KindCity:
		return KindCity, nil
	case KindTopic:
		return KindTopic, nil
	default:
		return "", fmt.Errorf("kind must be one of country, region, city, topic (got %q)", raw)
	}
}

// NameKind classifies a place name variant.
type NameKind string

const (
	NameCommon   NameKind = "common"
	NameOfficial NameKind = "official"
	NameAlias    NameKind = "alias"
	NameEndonym  NameKind = "endonym"
	NameExonym   NameKind = "exonym"
)

// ExternalID anchors a place to an identifier in another dataset.
type ExternalID struct {
	Source string
	ExtID  string
}

// PlaceInput is one incoming place description from any source loader.
type PlaceInput struct {
	Kind        Kind
	Name        string
	CountryCode string
	Adm1Code    string
	Adm2Code    string
	Lat         *float64
	Lng         *float64
	Population  *int64
	WikidataQID string
	OSMType     string
	OSMID       int64
	GeonamesID  int64
	Names       []NameInput
	ExternalIDs []ExternalID
}

// NameInput is an additional name carried with a PlaceInput.
type NameInput struct {
	Name        string
	Lang        string
	NameKind    NameKind
	IsPreferred bool
	IsOfficial  bool
}

// Candidate is the identity-resolution view of an incoming record.
type Candidate struct {
	Kind        Kind
	WikidataQID string
	OSMType     string
	OSMID       int64
	GeonamesID  int64
	CountryCode string
	Adm1Code    string
	Adm2Code    string

	NormalizedName string
	Lat            *float64
	Lng            *float64

	// CoordinateThreshold of zero means the resolver's configured
	// threshold, DefaultCoordinateThreshold unless overridden.
	CoordinateThreshold float64
}

// Match is a successful identity resolution.
type Match struct {
	PlaceID  int64
	Strategy string
}

// Resolution strategies, in cascade order.
const (
	StrategyWikidata  = "wikidata"
	StrategyOSM       = "external:osm"
	StrategyGeonames  = "external:geonames"
	StrategyCountry   = "country-code"
	StrategyAdminCode = "admin-code"
	StrategyName      = "name"
	StrategyProximity = "proximity"
)

// PlacePoint is a place id with optional coordinates, the read model
// used by the name and proximity tiers.
type PlacePoint struct {
	ID  int64
	Lat *float64
	Lng *float64
}

func (p PlacePoint) HasCoords() bool {
	return p.Lat != nil && p.Lng != nil
}

func (c Candidate) HasCoords() bool {
	return c.Lat != nil && c.Lng != nil
}
