// Command serac is the primary backup CLI: sync the local manifest cache,
// audit the remote layout, and pack+upload any new or changed files under
// the given input directory.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/drinkcat/simple-serac/command"
)

func main() {
	// A signal aborts the run between files rather than mid-write: the
	// packer only checks ctx between capture() calls, never inside one.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := command.RunBackup(ctx, os.Args)
	cli.HandleExitCoder(err)
	if err != nil {
		os.Exit(1)
	}
}
