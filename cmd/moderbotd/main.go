// Command moderbotd runs the moderation bot in the foreground with the
// default configuration path, for service managers that expect a dedicated
// daemon binary.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"moderbot/internal/config"
	"moderbot/internal/daemonrun"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(ctx, cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("moderbotd: %v", err)
	}
}
