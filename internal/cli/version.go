package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/eventrank/internal/version"
)

// NewVersionCmd creates the 'version' command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the current version, commit hash, and build date.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Version:  %s\n", version.Version)
			_, _ = fmt.Fprintf(w, "Commit:   %s\n", version.Commit)
			_, _ = fmt.Fprintf(w, "Built:    %s\n", version.Date)
			return nil
		},
	}
}
