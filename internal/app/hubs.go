package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"atlas.fit/gazetteer/internal/cli"
	"atlas.fit/gazetteer/internal/gazetteer"
	"atlas.fit/gazetteer/internal/hubs"
	"atlas.fit/gazetteer/internal/logging"
)

func runHubs(args []string) int {
	if len(args) == 0 {
		printHubsUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "gaps":
		return runHubGaps(args[1:])
	case "predict":
		return runHubPredict(args[1:])
	case "validate":
		return runHubValidate(args[1:])
	case "match":
		return runHubMatch(args[1:])
	case "persist":
		return runHubPersist(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown hubs subcommand: %s\n\n", args[0])
		printHubsUsage()
		return 2
	}
}

func runHubGaps(args []string) int {
	fs := flag.NewFlagSet("hubs gaps", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Second, "Command timeout")
	host := fs.String("host", "", "Domain to analyze")
	kind := fs.String("kind", string(gazetteer.KindCountry), "Entity kind")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*host) == "" {
		fmt.Fprintln(os.Stderr, "--host is required")
		return 2
	}
	if _, err := gazetteer.ParseKind(*kind); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
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

	analyzer := hubs.NewGapAnalyzer(pool, logger)
	report, err := analyzer.AnalyzeGaps(ctx, strings.TrimSpace(*host), *kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gap analysis failed: %v\n", err)
		return 1
	}

	fmt.Printf("%s %s: seeded=%d visited=%d missing=%d coverage=%d%% complete=%t\n",
		*host, *kind, report.Seeded, report.Visited, report.Missing,
		report.CoveragePercent, report.IsComplete)
	return 0
}

func runHubPredict(args []string) int {
	fs := flag.NewFlagSet("hubs predict", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	host := fs.String("host", "", "Domain to predict hub URLs for")
	name := fs.String("name", "", "Entity name")
	code := fs.String("code", "", "Country code variant")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*host) == "" || strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "--host and --name are required")
		return 2
	}

	for _, prediction := range hubs.PredictHubURLs(*host, *name, *code) {
		fmt.Printf("%.2f  %s\n", prediction.Confidence, prediction.URL)
	}
	return 0
}

func runHubValidate(args []string) int {
	fs := flag.NewFlagSet("hubs validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file := fs.String("file", "", "Path to a fetched HTML page")
	pageURL := fs.String("url", "", "URL the page was fetched from")
	minNavLinks := fs.Int("min-nav-links", 0, "Navigation link threshold (0 uses the default)")
	minArticleLinks := fs.Int("min-article-links", 0, "Article link fallback threshold")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return 2
	}

	body, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read page: %v\n", err)
		return 1
	}

	evidence, err := hubs.ExtractEvidence(strings.TrimSpace(*pageURL), string(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse page: %v\n", err)
		return 1
	}

	thresholds := hubs.DefaultThresholds()
	if *minNavLinks > 0 {
		thresholds.MinNavLinks = *minNavLinks
	}
	if *minArticleLinks > 0 {
		thresholds.MinArticleLinks = *minArticleLinks
	}

	verdict := hubs.Validate(evidence, thresholds)
	fmt.Printf("title=%q nav_links=%d article_links=%d\n",
		evidence.Title, evidence.NavLinksCount, evidence.ArticleLinksCount)
	if verdict.Passed {
		fmt.Println("PASS")
		return 0
	}
	fmt.Printf("FAIL reason=%s\n", verdict.Reason)
	return 0
}

func runHubMatch(args []string) int {
	fs := flag.NewFlagSet("hubs match", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	host := fs.String("host", "", "Domain to match")
	minNavLinks := fs.Int("min-nav-links", 0, "Navigation link threshold (0 uses the configured default)")
	minArticleLinks := fs.Int("min-article-links", 0, "Article link fallback threshold")
	fix := fs.Bool("fix", false, "Apply the links; default is a dry-run preview")
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
	if strings.TrimSpace(*host) == "" {
		fmt.Fprintln(os.Stderr, "--host is required")
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

	thresholds := hubs.Thresholds{
		MinNavLinks:     cfg.MinNavLinks,
		MinArticleLinks: cfg.MinArticleLinks,
	}
	if *minNavLinks > 0 {
		thresholds.MinNavLinks = *minNavLinks
	}
	if *minArticleLinks > 0 {
		thresholds.MinArticleLinks = *minArticleLinks
	}

	matcher := hubs.NewMatcher(pool, pool, logger)
	report, err := matcher.MatchDomain(ctx, strings.TrimSpace(*host), hubs.MatchOptions{
		DryRun:     !apply,
		Thresholds: thresholds,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
		return 1
	}

	mode := "DRY RUN"
	if apply {
		mode = "APPLIED"
	}
	fmt.Printf("%s: %d actions, %d skipped, coverage %d%% -> %d%%\n",
		mode, len(report.Actions), len(report.Skipped),
		report.Before.CoveragePercent, report.After.CoveragePercent)
	for _, action := range report.Actions {
		fmt.Printf("  link %s -> %s\n", action.URL, action.PlaceSlug)
	}
	for _, skip := range report.Skipped {
		fmt.Printf("  skip %s (%s)\n", skip.URL, skip.Reason)
	}
	if !apply && len(report.Actions) > 0 {
		fmt.Println("Re-run with --fix to apply.")
	}
	return 0
}

// runHubPersist validates one fetched page and, when it passes, writes
// it as a hub with an audit trail and a per-pass determination row.
func runHubPersist(args []string) int {
	fs := flag.NewFlagSet("hubs persist", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	host := fs.String("host", "", "Domain the page belongs to")
	pageURL := fs.String("url", "", "URL the page was fetched from")
	file := fs.String("file", "", "Path to the fetched HTML page")
	placeSlug := fs.String("place-slug", "", "Slug of the place this hub represents")
	placeKind := fs.String("place-kind", "", "Kind of the place this hub represents")
	topicSlug := fs.String("topic-slug", "", "Slug of the topic this hub represents")
	topicLabel := fs.String("topic-label", "", "Label of the topic this hub represents")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*host) == "" || strings.TrimSpace(*pageURL) == "" || strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--host, --url and --file are required")
		return 2
	}
	if *placeKind != "" {
		if _, err := gazetteer.ParseKind(*placeKind); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
	}

	body, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read page: %v\n", err)
		return 1
	}
	evidence, err := hubs.ExtractEvidence(strings.TrimSpace(*pageURL), string(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse page: %v\n", err)
		return 1
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

	thresholds := hubs.Thresholds{
		MinNavLinks:     cfg.MinNavLinks,
		MinArticleLinks: cfg.MinArticleLinks,
	}
	verdict := hubs.Validate(evidence, thresholds)

	manager := hubs.NewManager(pool, logger)
	metrics, err := json.Marshal(evidence)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode evidence: %v\n", err)
		return 1
	}

	var summary hubs.Summary
	if !verdict.Passed {
		summary.Skipped++
		manager.RecordAuditEntry(ctx, hubs.AuditEntry{
			Host:              strings.TrimSpace(*host),
			URL:               strings.TrimSpace(*pageURL),
			PlaceKind:         strings.TrimSpace(*placeKind),
			Decision:          "rejected:" + verdict.Reason,
			ValidationMetrics: metrics,
		})
		if err := manager.RecordFinalDetermination(ctx, strings.TrimSpace(*host), false, summary); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to record determination: %v\n", err)
			return 1
		}
		fmt.Printf("rejected reason=%s nav_links=%d article_links=%d\n",
			verdict.Reason, evidence.NavLinksCount, evidence.ArticleLinksCount)
		return 0
	}

	outcome, err := manager.PersistValidatedHub(ctx, hubs.Snapshot{
		Host:              strings.TrimSpace(*host),
		URL:               strings.TrimSpace(*pageURL),
		PlaceSlug:         strings.TrimSpace(*placeSlug),
		PlaceKind:         strings.TrimSpace(*placeKind),
		TopicSlug:         strings.TrimSpace(*topicSlug),
		TopicLabel:        strings.TrimSpace(*topicLabel),
		Title:             evidence.Title,
		NavLinksCount:     evidence.NavLinksCount,
		ArticleLinksCount: evidence.ArticleLinksCount,
		Evidence:          metrics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to persist hub: %v\n", err)
		return 1
	}
	switch outcome {
	case hubs.OutcomeInserted:
		summary.Inserted++
	case hubs.OutcomeUpdated:
		summary.Updated++
	default:
		summary.Unchanged++
	}

	manager.RecordAuditEntry(ctx, hubs.AuditEntry{
		Host:              strings.TrimSpace(*host),
		URL:               strings.TrimSpace(*pageURL),
		PlaceKind:         strings.TrimSpace(*placeKind),
		Decision:          "validated:" + string(outcome),
		ValidationMetrics: metrics,
	})
	if err := manager.RecordFinalDetermination(ctx, strings.TrimSpace(*host), false, summary); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to record determination: %v\n", err)
		return 1
	}

	fmt.Printf("%s title=%q nav_links=%d article_links=%d\n",
		outcome, evidence.Title, evidence.NavLinksCount, evidence.ArticleLinksCount)
	return 0
}

func printHubsUsage() {
	fmt.Fprintln(os.Stderr, "Usage: gazetteer hubs <gaps|predict|validate|match|persist> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Subcommands:")
	fmt.Fprintln(os.Stderr, "  gaps      Coverage report for one domain and kind")
	fmt.Fprintln(os.Stderr, "  predict   Candidate hub URLs for an entity on a domain")
	fmt.Fprintln(os.Stderr, "  validate  Score a fetched HTML page against the link thresholds")
	fmt.Fprintln(os.Stderr, "  match     Link validated candidates to missing places (dry-run by default)")
	fmt.Fprintln(os.Stderr, "  persist   Validate a fetched page and store it as a hub with an audit trail")
}
