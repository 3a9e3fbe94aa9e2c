// Command serac-s3 is the operational helper for inspecting and poking the
// remote bucket directly: listing objects, dumping bucket configuration,
// and one-off uploads/downloads outside the main backup flow.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/drinkcat/simple-serac/command"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := command.RunS3(ctx, os.Args)
	cli.HandleExitCoder(err)
	if err != nil {
		os.Exit(1)
	}
}
