package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/TimurManjosov/pawswipe/cmd/pawswipe/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.Run(ctx, os.Stderr)
	stop()
	os.Exit(code)
}
