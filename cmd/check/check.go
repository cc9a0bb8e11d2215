// Package check tests the connection to the configured remote store
package check

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/reckless-court/internal/app"
	"github.com/tphakala/reckless-court/internal/conf"
)

// Command creates the check command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Test the connection to the court record",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			n, err := a.Court.TestConnection(cmd.Context())
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connection successful! Found %d entries.\n", n)
			return nil
		},
	}

	return cmd
}
