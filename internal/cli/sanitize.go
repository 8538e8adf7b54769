package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/eventrank/internal/domain/event"
	"github.com/kailas-cloud/eventrank/internal/usecase/sanitize"
)

// NewSanitizeCmd creates the 'sanitize' command.
func NewSanitizeCmd(g *globalFlags) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "sanitize",
		Short: "Validate, deduplicate and normalize raw calendar records",
		Long: `Reads raw feed records ({"events": [...]} or a bare array), drops records
with invalid dates and duplicates, and writes the canonical events as JSON.
Statistics are printed to stderr.`,
		Example: `  eventrank-cli sanitize --in feed.json --out events.json
  cat feed.json | eventrank-cli sanitize --in -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSanitize(cmd, g, in, out)
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Raw records JSON file (- for stdin)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func runSanitize(cmd *cobra.Command, g *globalFlags, in, out string) error {
	records, err := readRawRecords(cmd, in)
	if err != nil {
		return err
	}

	events, stats := sanitize.New(g.logger()).Sanitize(records)
	if events == nil {
		events = []event.Event{}
	}

	printStats(cmd, stats)
	return writeOutput(cmd, out, events)
}

func readRawRecords(cmd *cobra.Command, path string) ([]event.RawRecord, error) {
	data, err := readFile(cmd, path)
	if err != nil {
		return nil, err
	}
	raw, err := unwrapEvents(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var records []event.RawRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode raw records: %w", err)
	}
	return records, nil
}

func printStats(cmd *cobra.Command, s sanitize.Stats) {
	w := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(w, "Sanitized %d raw records:\n", s.TotalRaw)
	_, _ = fmt.Fprintf(w, "  removed duplicates:    %d\n", s.RemovedDuplicates)
	_, _ = fmt.Fprintf(w, "  removed invalid dates: %d\n", s.RemovedInvalidDates)
	_, _ = fmt.Fprintf(w, "  filled descriptions:   %d\n", s.FilledMissingDesc)
	_, _ = fmt.Fprintf(w, "  normalized text:       %d\n", s.NormalizedText)
	_, _ = fmt.Fprintf(w, "  final count:           %d\n", s.FinalCount)
}
