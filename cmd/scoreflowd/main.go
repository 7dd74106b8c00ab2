// Command scoreflowd runs the ingestion worker daemon: the background
// workflow loop plus the HTTP API. It reads the default configuration
// location; use `scoreflow worker --config` for an explicit file.
package main

import (
	"context"
	"log"

	"scoreflow/internal/config"
	"scoreflow/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("scoreflowd: %v", err)
	}
}
