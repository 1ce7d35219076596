// Command csvexplore summarizes the columns of tabular inputs and suggests a
// type for each one.
//
//	csvexplore [flags] [FILE...]
//
// Each input is read to the end and reported on stdout, one line per column
// sorted by name. Progress and diagnostics go to stderr.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// register the SQL record sources with the source factory.
	_ "csvexplore/internal/source/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}
