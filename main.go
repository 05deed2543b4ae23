// main.go
package main

import (
	"os"

	"convtrace_stats/internal/logger"

	"github.com/phuslu/log"
)

var (
	version = "0.1.0"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Error().Err(err).Msg("❌ convtrace_stats failed")
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}
