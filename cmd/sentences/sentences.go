// Package sentences prints the wheel's sentence list
package sentences

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/reckless-court/internal/conf"
	"github.com/tphakala/reckless-court/internal/datastore"
	"github.com/tphakala/reckless-court/internal/logger"
)

// Command creates the sentences command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentences",
		Short: "Print the wheel's sentence list",
		Long:  "Print the persisted sentence list, or the configured seed list when none was saved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.OpenSQLite(datastore.Config{
				Path:      settings.Store.Path,
				SlowQuery: settings.Store.SlowQuery,
				Logger:    logger.Global().Module("datastore"),
			})
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			list, found, err := store.LoadSentences(cmd.Context())
			if err != nil {
				return err
			}
			source := "saved"
			if !found {
				list, source = settings.Sentences, "seed"
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "The wheel has no sentences")
				return nil
			}
			fmt.Fprintf(out, "%d %s sentences:\n", len(list), source)
			for i, s := range list {
				fmt.Fprintf(out, "%3d. %s\n", i+1, s)
			}
			return nil
		},
	}

	return cmd
}
