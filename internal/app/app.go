package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "resolve":
		return runResolve(args[1:])
	case "merge":
		return runMerge(args[1:])
	case "runs":
		return runRuns(args[1:])
	case "hubs":
		return runHubs(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "gazetteer CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  gazetteer <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health   Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest   Load places from a source file (countries, wikidata, osm, place)")
	fmt.Fprintln(os.Stderr, "  resolve  Resolve one candidate against the gazetteer without writing")
	fmt.Fprintln(os.Stderr, "  merge    Find and collapse duplicate places (dry-run by default)")
	fmt.Fprintln(os.Stderr, "  runs     List ingestion runs")
	fmt.Fprintln(os.Stderr, "  hubs     Hub coverage tools (gaps, predict, match)")
	fmt.Fprintln(os.Stderr, "  serve    Start the read-only API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"gazetteer <command> -h\" for command-specific flags.")
}
