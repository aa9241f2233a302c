package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

var commands = map[string]func(context.Context, []string) error{
	"tui":    runTUI,
	"list":   runList,
	"delete": runDelete,
	"sweep":  runSweep,
}

func usage() {
	fmt.Fprintf(os.Stderr, `storeadmin - store catalog console (version %s)

Usage:
  storeadmin <command> [options]

Commands:
  tui       Interactive console for billboards and colors
  list      Print one page of a record table
  delete    Delete one record and its stored asset
  sweep     Retry asset deletions left pending by failed deletes
  version   Print the version

Run 'storeadmin <command> -h' for command-specific help.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println(version)
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := fn(ctx, os.Args[2:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
