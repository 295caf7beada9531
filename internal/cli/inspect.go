package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/aipfetch/pkg/archive"
	"github.com/glorpus-work/aipfetch/pkg/progress"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	var (
		extractDir string
		long       bool
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Identify downloaded AIP archives and list their contents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			am := archive.NewManager()
			for _, path := range args {
				info, err := am.Inspect(cmd.Context(), path)
				if err != nil {
					return err
				}
				printArchiveInfo(cmd.OutOrStdout(), info, long)

				if extractDir != "" {
					if err := am.ExtractAll(cmd.Context(), path, extractDir); err != nil {
						return fmt.Errorf("failed to extract %s: %w", path, err)
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Extracted to %s\n", extractDir)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&extractDir, "extract", "", "Also extract the archive into this directory")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "List every entry")

	return cmd
}

func printArchiveInfo(w io.Writer, info *archive.Info, long bool) {
	_, _ = fmt.Fprintf(w, "%s\n", info.Path)
	_, _ = fmt.Fprintf(w, "  format:  %s (%s)\n", info.Format, info.MediaType)
	_, _ = fmt.Fprintf(w, "  size:    %s\n", progress.FormatBytes(info.Size))
	_, _ = fmt.Fprintf(w, "  files:   %d (%s uncompressed)\n", info.Files, progress.FormatBytes(info.TotalBytes))

	if !long || len(info.Entries) == 0 {
		return
	}
	tabWriter := tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "  SIZE\tMODIFIED\tNAME")
	for _, e := range info.Entries {
		size := progress.FormatBytes(e.Size)
		if e.IsDir {
			size = "-"
		}
		_, _ = fmt.Fprintf(tabWriter, "  %s\t%s\t%s\n", size, e.ModTime.Format("2006-01-02 15:04"), e.Name)
	}
	_ = tabWriter.Flush()
}
