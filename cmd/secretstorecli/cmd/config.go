package cmd

import (
	"os"

	jww "github.com/spf13/jwalterweatherman"

	"massnet.org/mass-secretstore/config"
	"massnet.org/mass-secretstore/logging"
)

const (
	defaultConfigFile  = config.DefaultConfigFilename
	defaultLogFilename  = "secretstorecli"
)

var (
	cfgFile   string
	cliConfig = config.NewDefaultConfig()
)

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		jww.ERROR.Println("failed to load config:", err)
		os.Exit(1)
	}
	cliConfig = cfg

	logging.Init(cfg.Log.LogDir, defaultLogFilename, cfg.Log.LogLevel, cfg.Log.LogAge)
	logging.VPrint(logging.DEBUG, "config loaded", logging.LogFormat{"config": cfg.String()})
}
