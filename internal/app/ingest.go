package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"atlas.fit/gazetteer/internal/cli"
	"atlas.fit/gazetteer/internal/gazetteer"
	"atlas.fit/gazetteer/internal/globaltime"
	"atlas.fit/gazetteer/internal/ingest"
	"atlas.fit/gazetteer/internal/logging"
	placeschema "atlas.fit/gazetteer/schema"
)

const (
	sourceCountries = "countries"
	sourceWikidata  = "wikidata"
	sourceOSM       = "osm"
	sourceManual    = "manual"
)

func runIngest(args []string) int {
	if len(args) == 0 {
		printIngestUsage()
		return 2
	}

	target := strings.ToLower(strings.TrimSpace(args[0]))
	switch target {
	case sourceCountries, sourceWikidata, sourceOSM, "place":
	default:
		fmt.Fprintf(os.Stderr, "Unknown ingest target: %s\n\n", args[0])
		printIngestUsage()
		return 2
	}

	fs := flag.NewFlagSet("ingest "+target, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	file := fs.String("file", "", "Path to the source export file")
	sourceVersion := fs.String("source-version", "", "Version tag of the source export")
	force := fs.Bool("force", false, "Re-ingest even when a completed run exists for this source and version")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return 2
	}

	if target == "place" {
		return ingestPlaceFile(*file, *timeout, envLoader)
	}

	if strings.TrimSpace(*sourceVersion) == "" {
		fmt.Fprintln(os.Stderr, "--source-version is required")
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

	tracker := ingest.NewTracker(pool, logger)
	check, err := tracker.CheckRun(ctx, target, *sourceVersion, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run check failed: %v\n", err)
		return 1
	}
	if check.ShouldSkip {
		fmt.Printf("ingest %s version=%s already completed at %s, use --force to re-run\n",
			target, *sourceVersion, formatUTCTimestampPtr(check.LastRun.CompletedAt))
		return 0
	}

	runID, started, err := tracker.StartRun(ctx, target, *sourceVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start run: %v\n", err)
		return 1
	}
	if !started {
		fmt.Fprintf(os.Stderr, "Another %s ingestion for version %s is already running\n", target, *sourceVersion)
		return 1
	}

	resolver := gazetteer.NewResolver(pool, logger,
		gazetteer.WithCoordinateThreshold(cfg.CoordinateThreshold))
	service := ingest.NewService(resolver, pool, logger,
		ingest.WithLanguageDetection(cfg.NameLangDetect))

	stats, err := ingestFile(ctx, service, pool, logger, target, *file)
	if err != nil {
		if failErr := tracker.FailRun(ctx, runID, err); failErr != nil {
			logger.Error().Err(failErr).Int64("run_id", runID).Msg("marking run failed failed")
		}
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}
	if err := tracker.CompleteRun(ctx, runID, stats); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to complete run: %v\n", err)
		return 1
	}

	fmt.Printf("ingest %s version=%s created=%d updated=%d names=%d\n",
		target, *sourceVersion, stats.PlacesCreated, stats.PlacesUpdated, stats.NamesAdded)
	return 0
}

func ingestFile(ctx context.Context, service *ingest.Service, relations relationStore, logger zerolog.Logger, target, path string) (ingest.RunStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.RunStats{}, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	switch target {
	case sourceCountries:
		records, err := ingest.ParseCountries(f)
		if err != nil {
			return ingest.RunStats{}, fmt.Errorf("parse countries export: %w", err)
		}
		return ingestCountries(ctx, service, relations, logger, records)
	case sourceWikidata:
		inputs, err := ingest.ParseWikidata(f)
		if err != nil {
			return ingest.RunStats{}, fmt.Errorf("parse wikidata export: %w", err)
		}
		return upsertAll(ctx, service, sourceWikidata, inputs)
	case sourceOSM:
		inputs, skipped, err := ingest.ParseOSM(f)
		if err != nil {
			return ingest.RunStats{}, fmt.Errorf("parse osm export: %w", err)
		}
		if skipped > 0 {
			logger.Info().Int("skipped", skipped).Msg("osm rows with unmapped place tags skipped")
		}
		return upsertAll(ctx, service, sourceOSM, inputs)
	default:
		return ingest.RunStats{}, fmt.Errorf("unknown ingest target %q", target)
	}
}

// relationStore is the slice of the storage layer the country loader
// needs to link capitals.
type relationStore interface {
	AddRelation(ctx context.Context, parentID, childID int64, relation string, metadata []byte, now time.Time) (bool, error)
}

// ingestCountries upserts every country and its capitals, then links
// each capital with a capital_of edge.
func ingestCountries(ctx context.Context, service *ingest.Service, relations relationStore, logger zerolog.Logger, records []ingest.CountryRecord) (ingest.RunStats, error) {
	var stats ingest.RunStats
	for _, record := range records {
		outcome, err := service.UpsertPlace(ctx, sourceCountries, record.Place)
		if err != nil {
			return stats, fmt.Errorf("upsert country %q: %w", record.Place.Name, err)
		}
		accumulate(&stats, outcome)

		for _, capital := range record.Capitals {
			capitalInput := gazetteer.PlaceInput{
				Kind:        gazetteer.KindCity,
				Name:        capital,
				CountryCode: record.Place.CountryCode,
			}
			capitalOutcome, err := service.UpsertPlace(ctx, sourceCountries, capitalInput)
			if err != nil {
				return stats, fmt.Errorf("upsert capital %q: %w", capital, err)
			}
			accumulate(&stats, capitalOutcome)

			added, err := relations.AddRelation(ctx, outcome.PlaceID, capitalOutcome.PlaceID,
				"capital_of", nil, globaltime.UTC())
			if err != nil {
				return stats, fmt.Errorf("link capital %q: %w", capital, err)
			}
			if !added {
				logger.Debug().
					Int64("country_id", outcome.PlaceID).
					Int64("capital_id", capitalOutcome.PlaceID).
					Msg("capital_of edge already present")
			}
		}
	}
	return stats, nil
}

func upsertAll(ctx context.Context, service *ingest.Service, source string, inputs []gazetteer.PlaceInput) (ingest.RunStats, error) {
	var stats ingest.RunStats
	for _, input := range inputs {
		outcome, err := service.UpsertPlace(ctx, source, input)
		if err != nil {
			return stats, fmt.Errorf("upsert %s %q: %w", input.Kind, input.Name, err)
		}
		accumulate(&stats, outcome)
	}
	return stats, nil
}

func accumulate(stats *ingest.RunStats, outcome ingest.UpsertOutcome) {
	if outcome.Created {
		stats.PlacesCreated++
	} else {
		stats.PlacesUpdated++
	}
	stats.NamesAdded += outcome.NamesAdded
}

// ingestPlaceFile validates one place payload against the schema and
// upserts it, outside run gating since manual intake has no version.
func ingestPlaceFile(path string, timeout time.Duration, envLoader *cli.EnvLoader) int {
	payload, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read payload: %v\n", err)
		return 1
	}

	input, err := placeschema.ValidatePlacePayload(json.RawMessage(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid place payload: %v\n", err)
		return 1
	}

	ctx, cancel, cfg, pool, err := connectPool(timeout, envLoader)
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

	resolver := gazetteer.NewResolver(pool, logger,
		gazetteer.WithCoordinateThreshold(cfg.CoordinateThreshold))
	service := ingest.NewService(resolver, pool, logger,
		ingest.WithLanguageDetection(cfg.NameLangDetect))

	outcome, err := service.UpsertPlace(ctx, sourceManual, *input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upsert failed: %v\n", err)
		return 1
	}

	action := "enriched"
	if outcome.Created {
		action = "created"
	}
	fmt.Printf("place %s id=%d strategy=%s names=%d\n",
		action, outcome.PlaceID, outcome.Strategy, outcome.NamesAdded)
	return 0
}

func printIngestUsage() {
	fmt.Fprintln(os.Stderr, "Usage: gazetteer ingest <countries|wikidata|osm|place> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Targets:")
	fmt.Fprintln(os.Stderr, "  countries  Countries-API JSON export (--file, --source-version)")
	fmt.Fprintln(os.Stderr, "  wikidata   SPARQL JSON results (--file, --source-version)")
	fmt.Fprintln(os.Stderr, "  osm        OSM places CSV extract (--file, --source-version)")
	fmt.Fprintln(os.Stderr, "  place      Single place JSON payload (--file)")
}
