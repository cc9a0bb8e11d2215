// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix is applied by AutomaticEnv: remote.scripturl reads RECKLESS_REMOTE_SCRIPTURL.
const envPrefix = "RECKLESS"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the short-form environment variables that are bound in
// addition to the automatic RECKLESS_<SECTION>_<KEY> names.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "RECKLESS_DEBUG", validateEnvBool},
		{"remote.backend", "RECKLESS_BACKEND", validateEnvBackend},
		{"remote.scripturl", "RECKLESS_SCRIPT_URL", validateEnvURL},
		{"remote.sheetid", "RECKLESS_SHEET_ID", nil},
		{"remote.credentialsfile", "RECKLESS_CREDENTIALS_FILE", nil},
		{"remote.timeout", "RECKLESS_REMOTE_TIMEOUT", validateEnvDuration},
		{"store.path", "RECKLESS_STORE_PATH", nil},
		{"webserver.port", "RECKLESS_PORT", validateEnvPort},
		{"log.level", "RECKLESS_LOG_LEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvBackend(value string) error {
	if value != BackendScript && value != BackendSheets {
		return fmt.Errorf("must be %q or %q", BackendScript, BackendSheets)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("must be a duration such as 30s")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}
