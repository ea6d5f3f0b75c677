// Command rets-metadata downloads and prints the metadata of a RETS server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pior/rets/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", logging.Mask(err.Error()))
		stop()
		os.Exit(1)
	}
}
