// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("app.name", "Reckless Court System")
	viper.SetDefault("app.version", "1.0.0")

	viper.SetDefault("remote.backend", BackendScript)
	viper.SetDefault("remote.scripturl", "")
	viper.SetDefault("remote.sheetid", "")
	viper.SetDefault("remote.sheetname", "Reckless Submissions")
	viper.SetDefault("remote.credentialsfile", "")
	viper.SetDefault("remote.timeout", 30*time.Second)
	viper.SetDefault("remote.ratelimit", 5.0)
	viper.SetDefault("remote.cachettl", 30*time.Second)
	viper.SetDefault("remote.useragent", "reckless-court/1.0")

	viper.SetDefault("store.path", "reckless-court.db")
	viper.SetDefault("store.slowquery", 200*time.Millisecond)

	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", 8080)
	viper.SetDefault("webserver.readtimeout", 30*time.Second)
	viper.SetDefault("webserver.writetimeout", 30*time.Second)
	viper.SetDefault("webserver.bodylimit", "1M")
	viper.SetDefault("webserver.corsorigins", []string{})

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.timezone", "Local")
	viper.SetDefault("log.file", "")

	viper.SetDefault("defaults.judgmentstatus", "pending")
	viper.SetDefault("defaults.maxsubmissionsperpage", 50)
	viper.SetDefault("defaults.wheelspinduration", 4*time.Second)
	viper.SetDefault("defaults.wheelminturns", 5)

	viper.SetDefault("sheet.host", "127.0.0.1")
	viper.SetDefault("sheet.port", 8090)
	viper.SetDefault("sheet.path", "reckless-sheet.db")

	viper.SetDefault("sentences", []string{})
}
