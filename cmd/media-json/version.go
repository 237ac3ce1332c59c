package main

import (
	"encoding/json"
	"fmt"

	"media-json/internal/startup"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// The root pre-run loads .env and sets GOMEMLIMIT; neither matters here.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := startup.GetBuildInfo()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "media-json %s\n", info.Version)
			fmt.Fprintf(w, "  commit:     %s\n", info.Commit)
			fmt.Fprintf(w, "  built:      %s\n", info.BuildTime)
			fmt.Fprintf(w, "  go:         %s\n", info.GoVersion)
			fmt.Fprintf(w, "  os/arch:    %s/%s\n", info.OS, info.Arch)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
