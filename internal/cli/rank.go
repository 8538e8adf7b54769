package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/domain/event"
	"github.com/kailas-cloud/eventrank/internal/domain/profile"
	"github.com/kailas-cloud/eventrank/internal/domain/result"
	"github.com/kailas-cloud/eventrank/internal/domain/weights"
	"github.com/kailas-cloud/eventrank/internal/usecase/sanitize"
)

type rankOptions struct {
	profilePath string
	eventsPath  string
	weightsPath string
	raw         bool
	top         int

	major     string
	year      string
	interests []string
}

// rankedEvent mirrors the POST /rank response element.
type rankedEvent struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Details result.Details `json:"details"`
}

// NewRankCmd creates the 'rank' command.
func NewRankCmd(g *globalFlags) *cobra.Command {
	opts := &rankOptions{}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank events for a student profile",
		Long: `Scores every event against the profile and prints them best first.
The profile comes from --profile or from --major/--year/--interest.`,
		Example: `  eventrank-cli rank --profile me.json --events events.json
  eventrank-cli rank --major "Computer Science" --interest ai --events feed.json --raw --top 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRank(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profilePath, "profile", "p", "", "Profile JSON file")
	cmd.Flags().StringVarP(&opts.eventsPath, "events", "e", "", "Events JSON file (- for stdin)")
	cmd.Flags().StringVarP(&opts.weightsPath, "weights", "w", "", "Weights JSON file overriding the configured defaults")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Treat --events as raw feed records and sanitize them first")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 0, "Print only the N best events (0 = all)")
	cmd.Flags().StringVar(&opts.major, "major", "", "Profile major")
	cmd.Flags().StringVar(&opts.year, "year", "", "Profile year")
	cmd.Flags().StringSliceVar(&opts.interests, "interest", nil, "Profile interest (repeatable)")
	_ = cmd.MarkFlagRequired("events")

	return cmd
}

func runRank(cmd *cobra.Command, g *globalFlags, opts *rankOptions) error {
	p, err := opts.profile(cmd)
	if err != nil {
		return err
	}

	var w *weights.Partial
	if opts.weightsPath != "" {
		w = &weights.Partial{}
		if err := readJSONFile(cmd, opts.weightsPath, w); err != nil {
			return err
		}
	}

	c, logger, err := g.components()
	if err != nil {
		return err
	}

	events, err := opts.loadEvents(cmd, c.Ranking.Sanitize)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := c.Ranking.Rank(ctx, p, events, w)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	logger.Debug("Ranked events", zap.Int("events", len(events)), zap.Int("results", len(results)))

	if opts.top > 0 && len(results) > opts.top {
		results = results[:opts.top]
	}
	out := make([]rankedEvent, len(results))
	for i := range results {
		out[i] = rankedEvent{ID: results[i].ID(), Score: results[i].Score(), Details: results[i].Details()}
	}
	return writeOutput(cmd, "", out)
}

func (o *rankOptions) profile(cmd *cobra.Command) (profile.Profile, error) {
	var p profile.Profile
	if o.profilePath != "" {
		if err := readJSONFile(cmd, o.profilePath, &p); err != nil {
			return profile.Profile{}, err
		}
		return p, nil
	}
	if o.major == "" && o.year == "" && len(o.interests) == 0 {
		return profile.Profile{}, errors.New("a profile is required: use --profile or --major/--year/--interest")
	}
	return profile.Profile{Major: o.major, Year: o.year, Interests: o.interests}, nil
}

func (o *rankOptions) loadEvents(
	cmd *cobra.Command, sanitizeFn func([]event.RawRecord) ([]event.Event, sanitize.Stats),
) ([]event.Event, error) {
	if o.raw {
		records, err := readRawRecords(cmd, o.eventsPath)
		if err != nil {
			return nil, err
		}
		events, stats := sanitizeFn(records)
		printStats(cmd, stats)
		return events, nil
	}

	data, err := readFile(cmd, o.eventsPath)
	if err != nil {
		return nil, err
	}
	raw, err := unwrapEvents(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.eventsPath, err)
	}
	var events []event.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}
