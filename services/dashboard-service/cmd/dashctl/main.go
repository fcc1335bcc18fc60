// dashctl drives the DBTest dashboard backend from the command line.
//
// Usage:
//
//	dashctl counts
//	dashctl runs list|current|start|download|profile|runtime|stop
//	dashctl bugs list|graph|download|dot|tag
//	dashctl log
//	dashctl upload <file>
//	dashctl watch [--metrics-addr=:9100]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
