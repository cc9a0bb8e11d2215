// conf/validate.go settings validation
package conf

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	collect := func(errs []string) {
		ve.Errors = append(ve.Errors, errs...)
	}

	collect(validateRemoteSettings(&settings.Remote))
	collect(validateWebServerSettings(&settings.WebServer))
	collect(validatePort("sheet.port", settings.Sheet.Port))
	collect(validateDefaultsSettings(&settings.Defaults))
	collect(validateLogSettings(&settings.Log))

	if strings.TrimSpace(settings.Store.Path) == "" {
		ve.Errors = append(ve.Errors, "store.path must not be empty")
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateRemoteSettings(r *RemoteSettings) []string {
	var errs []string

	switch r.Backend {
	case BackendScript:
		// An empty script URL is allowed: the court then runs on the fallback store alone.
		if r.ScriptURL != "" {
			u, err := url.Parse(r.ScriptURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, fmt.Sprintf("remote.scripturl %q is not a valid http(s) URL", r.ScriptURL))
			}
		}
	case BackendSheets:
		if r.SheetID == "" {
			errs = append(errs, "remote.sheetid is required for the sheets backend")
		}
		if r.CredentialsFile == "" {
			errs = append(errs, "remote.credentialsfile is required for the sheets backend")
		}
		if r.SheetName == "" {
			errs = append(errs, "remote.sheetname is required for the sheets backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("remote.backend must be %q or %q, got %q", BackendScript, BackendSheets, r.Backend))
	}

	if r.Timeout < 0 {
		errs = append(errs, "remote.timeout must not be negative")
	}
	if r.RateLimit < 0 {
		errs = append(errs, "remote.ratelimit must not be negative")
	}
	if r.CacheTTL < 0 {
		errs = append(errs, "remote.cachettl must not be negative")
	}

	return errs
}

func validateWebServerSettings(w *WebServerSettings) []string {
	errs := validatePort("webserver.port", w.Port)
	if w.ReadTimeout < 0 || w.WriteTimeout < 0 {
		errs = append(errs, "webserver timeouts must not be negative")
	}
	return errs
}

func validatePort(key string, port int) []string {
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("%s must be between 1 and 65535, got %d", key, port)}
	}
	return nil
}

func validateDefaultsSettings(d *DefaultsSettings) []string {
	var errs []string
	if d.JudgmentStatus != "pending" {
		errs = append(errs, fmt.Sprintf("defaults.judgmentstatus must be \"pending\", got %q", d.JudgmentStatus))
	}
	if d.MaxSubmissionsPerPage < 1 {
		errs = append(errs, "defaults.maxsubmissionsperpage must be positive")
	}
	if d.WheelSpinDuration < 0 {
		errs = append(errs, "defaults.wheelspinduration must not be negative")
	}
	if d.WheelMinTurns < 0 {
		errs = append(errs, "defaults.wheelminturns must not be negative")
	}
	return errs
}

func validateLogSettings(l *LogSettings) []string {
	var errs []string
	switch l.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not a known level", l.Level))
	}
	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got %q", l.Format))
	}
	return errs
}
