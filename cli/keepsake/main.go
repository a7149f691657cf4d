package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	keepsakecmder "github.com/papercomputeco/keepsake/cmd/keepsake"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := keepsakecmder.NewKeepsakeCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
