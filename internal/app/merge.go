package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"atlas.fit/gazetteer/internal/cli"
	"atlas.fit/gazetteer/internal/gazetteer"
	"atlas.fit/gazetteer/internal/logging"
	"atlas.fit/gazetteer/internal/merge"
)

func runMerge(args []string) int {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	country := fs.String("country", "", "Restrict to one ISO 3166-1 alpha-2 country code")
	kind := fs.String("kind", "", "Restrict to one kind: country, region, city or topic")
	role := fs.String("role", "", "Restrict to places holding this hierarchy relation (e.g. capital_of)")
	proximity := fs.Float64("proximity", 0, "Pairwise coordinate threshold in degrees (0 uses the configured default)")
	fix := fs.Bool("fix", false, "Apply the merges; default is a dry-run preview")
	dryRun := fs.Bool("dry-run", false, "Preview only; this is already the default, the flag makes it explicit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	apply, err := resolveApplyMode(*dryRun, *fix)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *kind != "" {
		if _, err := gazetteer.ParseKind(*kind); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
	}
	if *proximity < 0 {
		fmt.Fprintln(os.Stderr, "--proximity must be >= 0")
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

	threshold := *proximity
	if threshold == 0 {
		threshold = cfg.CoordinateThreshold
	}
	engine := merge.NewEngine(pool, logger,
		merge.WithProximityThreshold(threshold))

	filter := merge.Filter{
		CountryCode: strings.ToUpper(strings.TrimSpace(*country)),
		Kind:        strings.ToLower(strings.TrimSpace(*kind)),
		Role:        strings.TrimSpace(*role),
	}
	result, err := engine.Run(ctx, filter, apply)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Merge failed: %v\n", err)
		return 1
	}

	printMergeResult(result, apply)
	return 0
}

func printMergeResult(result *merge.Result, applied bool) {
	mode := "DRY RUN"
	if applied {
		mode = "APPLIED"
	}
	fmt.Printf("%s: %d groups considered, %d merged, %d skipped, %d failed, %d places removed\n",
		mode, result.GroupsConsidered, result.GroupsMerged, result.GroupsSkipped,
		result.GroupsFailed, result.PlacesRemoved)

	for _, plan := range result.Plans {
		losers := make([]string, 0, len(plan.LoserIDs))
		for _, id := range plan.LoserIDs {
			losers = append(losers, fmt.Sprintf("%d", id))
		}
		line := fmt.Sprintf("  %s: keep %d, remove [%s]", plan.Key, plan.SurvivorID, strings.Join(losers, ", "))
		if plan.MintedID != nil {
			line += fmt.Sprintf(", mint %s/%s", plan.MintedID.Source, plan.MintedID.ExtID)
		}
		fmt.Println(line)
	}
	if !applied && result.GroupsMerged > 0 {
		fmt.Println("Re-run with --fix to apply.")
	}
}
