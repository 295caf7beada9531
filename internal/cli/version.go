package cli

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/aipfetch/pkg/download"
)

// Build information. Version is overridden at link time with -ldflags "-X".
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for aipfetch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := version.NewVersion(Version)
			if err != nil {
				return fmt.Errorf("invalid build version %q: %w", Version, err)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "aipfetch version %s\n", v)
			_, _ = fmt.Fprintf(out, "Build date: %s\n", BuildDate)
			_, _ = fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(out, "Storage service API: %s\n", download.SupportedAPI)
			return nil
		},
	}
}
