package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/aegis-sensor"
)

// Publishes three unsigned sensors into the in-memory node store until Ctrl+C.
func main() {
	cfg, err := aegissensor.ParseConfig([]byte(`
sensors:
  count: 3
transport:
  kind: memory
signing:
  disabled: true
logging:
  format: console
`))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	rt, err := aegissensor.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime exited: %v", err)
	}
}
