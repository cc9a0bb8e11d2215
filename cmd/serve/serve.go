// Package serve runs the court HTTP API
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/reckless-court/internal/api"
	"github.com/tphakala/reckless-court/internal/app"
	"github.com/tphakala/reckless-court/internal/buildinfo"
	"github.com/tphakala/reckless-court/internal/conf"
	"github.com/tphakala/reckless-court/internal/emulator"
	"github.com/tphakala/reckless-court/internal/logger"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	var withSheet bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the court API server",
		Long:  "Serve the intake, admin and court screens' JSON API on the configured address.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings, withSheet)
		},
	}

	cmd.Flags().String("host", "", "Address to bind the API to")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().String("script-url", "", "Apps Script web app URL")
	cmd.Flags().BoolVar(&withSheet, "with-sheet", false, "Also run the local sheet emulator and use it when no script URL is set")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return bindChanged(cmd, settings, map[string]string{
			"host":       "webserver.host",
			"port":       "webserver.port",
			"script-url": "remote.scripturl",
		})
	}

	return cmd
}

// bindChanged applies explicitly set flags on top of the loaded settings
func bindChanged(cmd *cobra.Command, settings *conf.Settings, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error applying flags: %w", err)
	}
	return conf.ValidateSettings(settings)
}

func run(ctx context.Context, settings *conf.Settings, withSheet bool) error {
	log := logger.Global().Module("serve")
	g, ctx := errgroup.WithContext(ctx)

	if withSheet {
		sheet, err := emulator.OpenSheet(settings.Sheet.Path, logger.Global().Module("emulator"))
		if err != nil {
			return err
		}
		defer func() { _ = sheet.Close() }()

		addr := settings.Sheet.Address()
		g.Go(func() error {
			return emulator.NewServer(sheet, logger.Global().Module("emulator")).Start(ctx, addr)
		})
		if settings.Remote.ScriptURL == "" {
			settings.Remote.Backend = conf.BackendScript
			settings.Remote.ScriptURL = "http://" + addr + "/"
		}
	}

	a, err := app.New(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("error closing components", logger.Error(err))
		}
	}()

	notice, err := a.Court.Init(ctx)
	if err != nil {
		return fmt.Errorf("failed to load submissions: %w", err)
	}
	log.Info(notice.Message, logger.String("level", string(notice.Level)))

	server, err := api.New(api.ConfigFromSettings(settings), a.Court,
		api.WithMetrics(a.Metrics),
		api.WithVersion(buildinfo.Current().GetVersion(settings.App.Version)),
		api.WithSlogger(logger.Global().Slog("http")),
	)
	if err != nil {
		return err
	}
	g.Go(func() error { return server.Start(ctx) })

	fmt.Printf("%s listening on %s\n", settings.App.Name, api.ConfigFromSettings(settings).Address())
	return g.Wait()
}
