// Command wbctl is a command-line client for Wikibase instances.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wbgo/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
