package app

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"atlas.fit/gazetteer/internal/cli"
	"atlas.fit/gazetteer/internal/gazetteer"
	"atlas.fit/gazetteer/internal/logging"
)

func runResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Second, "Command timeout")
	kind := fs.String("kind", "", "Entity kind: country, region, city or topic")
	name := fs.String("name", "", "Entity name")
	country := fs.String("country", "", "ISO 3166-1 alpha-2 country code")
	adm1 := fs.String("adm1", "", "First-level administrative code")
	adm2 := fs.String("adm2", "", "Second-level administrative code")
	lat := fs.Float64("lat", math.NaN(), "Latitude")
	lng := fs.Float64("lng", math.NaN(), "Longitude")
	qid := fs.String("qid", "", "Wikidata QID")
	osmType := fs.String("osm-type", "", "OSM element type (node, way, relation)")
	osmID := fs.Int64("osm-id", 0, "OSM element id")
	geonamesID := fs.Int64("geonames-id", 0, "GeoNames id")
	proximity := fs.Float64("proximity", 0, "Coordinate threshold in degrees (0 uses the configured default)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	parsedKind, err := gazetteer.ParseKind(*kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	hasLat := !math.IsNaN(*lat)
	hasLng := !math.IsNaN(*lng)
	if hasLat != hasLng {
		fmt.Fprintln(os.Stderr, "--lat and --lng must be provided together")
		return 2
	}

	ctx, cancel, cfg, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	cand := gazetteer.Candidate{
		Kind:                parsedKind,
		WikidataQID:         strings.TrimSpace(*qid),
		OSMType:             strings.TrimSpace(*osmType),
		OSMID:               *osmID,
		GeonamesID:          *geonamesID,
		CountryCode:         strings.ToUpper(strings.TrimSpace(*country)),
		Adm1Code:            strings.TrimSpace(*adm1),
		Adm2Code:            strings.TrimSpace(*adm2),
		NormalizedName:      gazetteer.NormalizeName(*name),
		CoordinateThreshold: *proximity,
	}
	if hasLat {
		cand.Lat = lat
		cand.Lng = lng
	}

	resolver := gazetteer.NewResolver(pool, logger,
		gazetteer.WithCoordinateThreshold(cfg.CoordinateThreshold))
	match, err := resolver.Resolve(ctx, cand)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resolve failed: %v\n", err)
		return 1
	}

	if match == nil {
		fmt.Println("no match")
		return 0
	}
	fmt.Printf("place_id=%d strategy=%s\n", match.PlaceID, match.Strategy)
	return 0
}
