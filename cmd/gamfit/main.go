// Command gamfit fits a generalized additive model to .npy data described
// by a JSON config and writes the fitted means, the coefficients and the
// partial effect plots.
package main

import (
	"flag"
	"os"

	"github.com/YuminosukeSato/scigam/pkg/log"
)

func main() {
	configPath := flag.String("config", "gamfit.json", "a config file for the run")
	criterion := flag.String("criterion", "", "select alpha by aic, bic, gcv or cv (overrides the config)")
	logLevel := flag.String("loglevel", "", "debug, info, warn or error (overrides the config)")
	flag.Parse()

	cfg, err := decodeConfig(*configPath)
	if err == nil {
		if *criterion != "" {
			cfg.Criterion = *criterion
		}
		if *logLevel != "" {
			cfg.LogLevel = *logLevel
		}
		err = log.SetupLogger(cfg.LogLevel)
	}
	if err == nil {
		_, err = run(cfg)
	}
	if err != nil {
		log.GetLoggerWithName("gamfit").Error("gamfit failed", err)
		os.Exit(1)
	}
}
