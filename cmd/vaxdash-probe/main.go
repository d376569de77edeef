package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/vaxdash/internal/probe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := probe.Execute(ctx, probe.NewRootCommand())
	stop()
	os.Exit(code)
}
