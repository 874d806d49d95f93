package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return 0
	}

	var (
		code int
		err  error
	)
	switch args[0] {
	case "--version", "version":
		fmt.Fprintf(stdout, "prebuilt %s\n", Version)
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	case "fetch":
		code, err = runFetch(ctx, args[1:], stdout, stderr)
	case "matrix":
		code, err = runMatrix(ctx, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Error: unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "prebuilt fetches prebuilt native bindings for every supported platform.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  prebuilt --version                    Show version information")
	fmt.Fprintln(w, "  prebuilt fetch [component...] [flags]  Download and extract artifacts")
	fmt.Fprintln(w, "  prebuilt matrix [component...] [flags] List targets without downloading")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Components: duckdb, keytar (default: all)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'prebuilt fetch --help' for flags.")
}
