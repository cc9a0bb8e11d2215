// Package sheet runs the local Apps Script emulator
package sheet

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/reckless-court/internal/conf"
	"github.com/tphakala/reckless-court/internal/emulator"
	"github.com/tphakala/reckless-court/internal/logger"
)

// Command creates the sheet command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Run a local stand-in for the Apps Script web app",
		Long: "Serve the submissions sheet web app contract from a SQLite file, " +
			"for development without a deployed script.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logger.Global().Module("emulator")
			sheet, err := emulator.OpenSheet(settings.Sheet.Path, log)
			if err != nil {
				return err
			}
			defer func() { _ = sheet.Close() }()

			addr := settings.Sheet.Address()
			fmt.Printf("Sheet emulator listening on http://%s/\n", addr)
			return emulator.NewServer(sheet, log).Start(ctx, addr)
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().String("path", "", "SQLite file holding the sheet")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		for flag, key := range map[string]string{"port": "sheet.port", "path": "sheet.path"} {
			if f := cmd.Flags().Lookup(flag); f.Changed {
				if err := viper.BindPFlag(key, f); err != nil {
					return fmt.Errorf("error binding flags: %w", err)
				}
			}
		}
		return viper.Unmarshal(settings)
	}

	return cmd
}
