package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattjoyce/runnerpool/internal/journal"
)

func runJournalNoun(args []string) int {
	if len(args) < 1 {
		printJournalNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printJournalNounHelp(os.Stdout)
		return 0
	}

	switch args[0] {
	case "list":
		if hasHelpFlag(args[1:]) {
			printJournalNounHelp(os.Stdout)
			return 0
		}
		return runJournalList(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown journal action: %s\n", args[0])
		return 1
	}
}

type journalEntryJSON struct {
	ID         string   `json:"id"`
	DeliveryID string   `json:"delivery_id"`
	Action     string   `json:"action"`
	JobID      int64    `json:"job_id"`
	RunID      int64    `json:"run_id"`
	Status     string   `json:"status,omitempty"`
	Repository string   `json:"repository"`
	Labels     []string `json:"labels"`
	ReceivedAt string   `json:"received_at"`
}

func runJournalList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	path := fs.String("journal", envOr(envJournal, ""), "Path to the delivery journal (SQLite)")
	limit := fs.Int("limit", journal.DefaultLimit, "Maximum number of deliveries to show")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "Usage: runnerpool journal list --journal PATH [--limit N] [--json]")
		return 1
	}
	if _, err := os.Stat(*path); err != nil {
		fmt.Fprintf(os.Stderr, "Journal not found: %v\n", err)
		return 1
	}

	ctx := context.Background()
	j, err := journal.Open(ctx, *path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open journal: %v\n", err)
		return 1
	}
	defer j.Close()

	entries, err := j.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read journal: %v\n", err)
		return 1
	}

	if *jsonOut {
		out := make([]journalEntryJSON, len(entries))
		for i, e := range entries {
			out[i] = journalEntryJSON{
				ID:         e.ID,
				DeliveryID: e.DeliveryID,
				Action:     e.Action,
				JobID:      e.JobID,
				RunID:      e.RunID,
				Status:     e.Status,
				Repository: e.Repository,
				Labels:     e.Labels,
				ReceivedAt: e.ReceivedAt.Format(time.RFC3339Nano),
			}
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	printJournalTable(os.Stdout, newTheme(), entries)
	return 0
}

func printJournalTable(w io.Writer, th theme, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, th.Dim.Render("No deliveries recorded."))
		return
	}
	fmt.Fprintln(w, th.Header.Render(fmt.Sprintf("%-20s  %-12s  %-12s  %-30s  %s", "RECEIVED", "ACTION", "JOB", "REPOSITORY", "LABELS")))
	for _, e := range entries {
		fmt.Fprintf(w, "%-20s  %-12s  %-12d  %-30s  %s\n",
			e.ReceivedAt.UTC().Format(time.DateTime),
			e.Action,
			e.JobID,
			e.Repository,
			strings.Join(e.Labels, ","),
		)
	}
}

func printJournalNounHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: runnerpool journal list --journal PATH [--limit N] [--json]

Shows the most recent deliveries recorded by 'runnerpool start --journal'.
`)
}
