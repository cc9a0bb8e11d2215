// conf/config.go settings loading for the court server
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
)

// Remote backends
const (
	BackendScript = "script" // Apps Script web app
	BackendSheets = "sheets" // Google Sheets API with a service account
)

// RemoteSettings configures access to the remote submission store
type RemoteSettings struct {
	Backend         string        // script or sheets
	ScriptURL       string        // deployed Apps Script web app URL
	SheetID         string        // spreadsheet id, sheets backend
	SheetName       string        // sheet tab holding the rows
	CredentialsFile string        // service account JSON, sheets backend
	Timeout         time.Duration // per request timeout
	RateLimit       float64       // requests per second, 0 disables limiting
	CacheTTL        time.Duration // read-all cache lifetime, 0 disables caching
	UserAgent       string
}

// StoreSettings configures the local fallback store
type StoreSettings struct {
	Path      string        // SQLite file
	SlowQuery time.Duration // threshold for slow query warnings
}

// WebServerSettings configures the court HTTP API
type WebServerSettings struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    string   // echo body limit, e.g. "1M"
	CORSOrigins  []string // allowed origins, empty allows all
}

// LogSettings configures logging output
type LogSettings struct {
	Level        string // trace, debug, info, warn, error
	Format       string // text or json
	Timezone     string
	File         string // optional JSON log file
	ModuleLevels map[string]string
}

// DefaultsSettings mirrors the front-end defaults block
type DefaultsSettings struct {
	JudgmentStatus        string
	MaxSubmissionsPerPage int
	WheelSpinDuration     time.Duration // animation length reported to clients
	WheelMinTurns         int           // cosmetic full turns before the residual
}

// SheetSettings configures the Apps Script emulator
type SheetSettings struct {
	Host string
	Port int
	Path string // SQLite file holding the emulated sheet
}

// Settings contains all configuration options for the court server.
type Settings struct {
	Debug bool // true to enable debug mode

	App struct {
		Name    string
		Version string
	}

	Remote    RemoteSettings
	Store     StoreSettings
	WebServer WebServerSettings
	Log       LogSettings
	Defaults  DefaultsSettings
	Sheet     SheetSettings

	Sentences []string // seed list used when no sentences are persisted
}

// Address returns host:port of the court API
func (w *WebServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// Address returns host:port of the emulator
func (s *SheetSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig converts log settings into a logger configuration
func (l *LogSettings) LoggingConfig(debug bool) *logger.LoggingConfig {
	level := l.Level
	if debug {
		level = "debug"
	}
	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     l.Timezone,
		Console:      &logger.ConsoleOutput{Enabled: true, Level: level, Format: l.Format},
		ModuleLevels: l.ModuleLevels,
	}
	if l.File != "" {
		cfg.FileOutput = &logger.FileOutput{Enabled: true, Path: l.File, Level: level}
	}
	return cfg
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into Settings. An empty
// configFile searches the default config paths and writes a default config
// when none exists.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "reckless-court"),
		"/etc/reckless-court",
	}, nil
}

// createDefaultConfig writes the current defaults to dir/config.yaml. Failure
// to write is not fatal; defaults stay in effect.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := DefaultConfigYAML()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return nil
	}

	viper.SetConfigFile(configPath)
	return nil
}

// DefaultConfigYAML renders the default settings as YAML
func DefaultConfigYAML() ([]byte, error) {
	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return nil, errors.New(fmt.Errorf("error rendering default config: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return data, nil
}

// GetSettings returns the loaded settings, or nil before Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
