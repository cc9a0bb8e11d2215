// Package app assembles the court from settings: the remote backend, the
// local fallback store, metrics and the court state itself.
package app

import (
	"context"
	"slices"

	"github.com/tphakala/reckless-court/internal/conf"
	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/datastore"
	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
	"github.com/tphakala/reckless-court/internal/observability"
	"github.com/tphakala/reckless-court/internal/remote"
	"github.com/tphakala/reckless-court/internal/remote/sheets"
)

// App holds the assembled components
type App struct {
	Settings *conf.Settings
	Court    *court.Court
	Store    court.Store // nil when no remote is configured
	Fallback *datastore.SQLiteStore
	Metrics  *observability.Metrics

	closers []func() error
	log     logger.Logger
}

// New builds the components described by settings. The court is not
// loaded yet; call Court.Init.
func New(ctx context.Context, settings *conf.Settings) (*App, error) {
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}

	a := &App{
		Settings: settings,
		log:      logger.Global().Module("app"),
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}
	m.CountErrors()
	a.Metrics = m

	fallback, err := datastore.OpenSQLite(datastore.Config{
		Path:      settings.Store.Path,
		SlowQuery: settings.Store.SlowQuery,
		Logger:    logger.Global().Module("datastore"),
	})
	if err != nil {
		return nil, err
	}
	a.Fallback = fallback
	a.closers = append(a.closers, fallback.Close)

	store, err := a.newRemoteStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = store

	d := settings.Defaults
	ct, err := court.New(store, fallback,
		court.WithWheel(d.WheelMinTurns, d.WheelSpinDuration),
		court.WithPageSize(d.MaxSubmissionsPerPage),
		court.WithSeedSentences(settings.Sentences),
		court.WithRecorder(m.Court),
		court.WithLogger(logger.Global().Module("court")),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Court = ct
	return a, nil
}

// newRemoteStore returns nil for a script backend without a URL
func (a *App) newRemoteStore(ctx context.Context) (court.Store, error) {
	r := a.Settings.Remote
	switch r.Backend {
	case conf.BackendSheets:
		client, err := sheets.New(ctx, sheets.Config{
			SheetID:         r.SheetID,
			SheetName:       r.SheetName,
			CredentialsFile: r.CredentialsFile,
			Logger:          logger.Global().Module("sheets"),
		})
		if err != nil {
			return nil, err
		}
		a.log.Info("using Google Sheets backend", logger.String("sheet", r.SheetName))
		return client, nil

	case conf.BackendScript, "":
		if r.ScriptURL == "" {
			a.log.Warn("no script URL configured, running on the local store only")
			return nil, nil
		}
		client, err := remote.NewScriptClient(remote.Config{
			ScriptURL: r.ScriptURL,
			Timeout:   r.Timeout,
			RateLimit: r.RateLimit,
			CacheTTL:  r.CacheTTL,
			UserAgent: r.UserAgent,
			Logger:    logger.Global().Module("remote"),
			Metrics:   a.Metrics.Remote,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			client.Close()
			return nil
		})
		a.log.Info("using Apps Script backend")
		return client, nil
	}

	return nil, errors.Newf("unknown remote backend %q", r.Backend).
		Component("app").
		Category(errors.CategoryConfiguration).
		Build()
}

// Close releases the components in reverse order of creation
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range slices.Backward(a.closers) {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
