package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"atlas.fit/gazetteer/internal/cli"
)

func runRuns(args []string) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Second, "Command timeout")
	source := fs.String("source", "", "Filter by ingestion source")
	limit := fs.Int("limit", 25, "Maximum runs to list")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	runs, err := pool.ListRuns(ctx, strings.TrimSpace(*source), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list runs: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{"runs": runs}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode runs: %v\n", err)
			return 1
		}
		return 0
	}

	headers := []string{"RUN", "SOURCE", "VERSION", "STATUS", "STARTED", "COMPLETED", "CREATED", "UPDATED", "NAMES", "ERROR"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		errText := ""
		if run.ErrorMessage != nil {
			errText = truncateForTable(*run.ErrorMessage, 40)
		}
		rows = append(rows, []string{
			strconv.FormatInt(run.RunID, 10),
			run.Source,
			run.SourceVersion,
			run.Status,
			formatUTCTimestamp(run.StartedAt),
			formatUTCTimestampPtr(run.CompletedAt),
			strconv.Itoa(run.PlacesCreated),
			strconv.Itoa(run.PlacesUpdated),
			strconv.Itoa(run.NamesAdded),
			errText,
		})
	}
	if err := writeTable(headers, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write table: %v\n", err)
		return 1
	}
	return 0
}
