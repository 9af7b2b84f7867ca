package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// startServer is a variable to allow mocking in tests
var startServer = runServer

// Run is the entrypoint for testing
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return startServer(context.Background(), stdout, stderr)
	}

	switch args[1] {
	case "serve", "server":
		return startServer(context.Background(), stdout, stderr)
	case "audit":
		return runAuditCmd(args[2:], stdout, stderr)
	case "health":
		return runHealthCmd(args[2:], stdout, stderr)
	case "version", "--version":
		_, _ = fmt.Fprintf(stdout, "claimrisk %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: claimrisk <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintln(w, "  serve                 Run the HTTP server (default)")
	_, _ = fmt.Fprintln(w, "  audit <evidence.json> Audit an evidence bag and print the report")
	_, _ = fmt.Fprintln(w, "  health [--url URL]    Check a running server")
	_, _ = fmt.Fprintln(w, "  version               Print the version")
}
