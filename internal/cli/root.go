/*
Package cli implements the eventrank command-line tool.

The commands load the same YAML configuration as the server, so a CLI run
ranks with the same embedder, weights and majors table.
*/
package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/app"
	"github.com/kailas-cloud/eventrank/internal/config"
	logpkg "github.com/kailas-cloud/eventrank/internal/logger"
	"github.com/kailas-cloud/eventrank/internal/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	env        string
	verbose    bool
}

// NewRootCmd creates the eventrank-cli root command with all subcommands.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "eventrank-cli",
		Short: "Sanitize calendar feeds and rank events for a student profile",
		Long: `eventrank-cli runs the eventrank pipeline locally.

  sanitize  validate, deduplicate and normalize a raw calendar feed
  rank      score events against a profile and print them best first`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&g.env, "env", config.GetEnv(), "Config environment when --config is not set")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(NewSanitizeCmd(g))
	cmd.AddCommand(NewRankCmd(g))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadConfig reads --config, then config/<env>.yaml, then falls back to defaults.
func (g *globalFlags) loadConfig() (config.Config, error) {
	if g.configPath != "" {
		cfg, err := config.LoadFile(g.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(g.env)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err = config.Parse(nil)
	if err != nil {
		return config.Config{}, fmt.Errorf("default config: %w", err)
	}
	return cfg, nil
}

func (g *globalFlags) logger() *zap.Logger {
	return logpkg.NewCLILogger(g.verbose)
}

func (g *globalFlags) components() (*app.Components, *zap.Logger, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := g.logger()
	c, err := app.Build(&cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build ranking service: %w", err)
	}
	return c, logger, nil
}

// readJSONFile decodes path into v; "-" reads stdin.
func readJSONFile(cmd *cobra.Command, path string, v any) error {
	data, err := readFile(cmd, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func readFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// unwrapEvents accepts a bare JSON array or an object with an "events" array.
func unwrapEvents(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty input")
	}
	if trimmed[0] == '[' {
		return trimmed, nil
	}
	var envelope struct {
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode events envelope: %w", err)
	}
	if len(envelope.Events) == 0 {
		return json.RawMessage("[]"), nil
	}
	return envelope.Events, nil
}

// writeOutput writes v as indented JSON to path, or to stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err //nolint:wrapcheck // stdout write
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
