package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"etl-template/internal/app"
	"etl-template/internal/logging"
)

// main is the entry point for the etl-template application.
func main() {
	runner := app.NewAppRunner()

	err := runner.Run(context.Background(), os.Args[1:])
	if err != nil {
		if errors.Is(err, app.ErrUsage) || errors.Is(err, app.ErrConfigNotFound) {
			fmt.Fprintln(os.Stderr, "")
			runner.Usage(os.Stderr)
		}
		// Pipeline failures were already logged by the run; report the summary regardless of level.
		logging.New(os.Stderr, logging.Error).Logf(logging.Error, "Application execution failed: %v", err)
		os.Exit(1)
	}
}
