package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kmetrics/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		stop()
		os.Exit(1)
	}
}

// printError writes err and, for coded errors, the suggested fixes.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	for _, fix := range errors.GetSuggestedFixes(errors.CodeOf(err)) {
		if fix.Command != "" {
			fmt.Fprintf(os.Stderr, "  hint: %s (%s)\n", fix.Description, fix.Command)
		} else {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", fix.Description)
		}
	}
}
