// Helper Audit - Home Assistant helper dependency analysis.
//
// This is the main entry point for the helperaudit binary. It scans a
// Home Assistant configuration for references to helper entities,
// classifies each helper, and supports safe deletion of the orphans.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ferncroft/helper-audit/internal/cli"
)

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
