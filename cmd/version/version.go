package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/reckless-court/internal/buildinfo"
	"github.com/tphakala/reckless-court/internal/conf"
)

// Command creates a new cobra.Command to print the version.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of the Reckless Court System",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built %s)\n",
				settings.App.Name, info.GetVersion(settings.App.Version), info.GetBuildDate())
			return nil
		},
	}

	return cmd
}
