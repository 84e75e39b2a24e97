// Command memoryctl inspects and edits redline conversation memory from the
// shell. Backend selection and settings come from REDLINE_* environment
// variables (and a .env file); flags override them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/jnorthrup/redline/internal/memoryctl"
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), memoryctl.Usage, "\nflags:\n")
		flag.PrintDefaults()
	}

	opts, err := memoryctl.ParseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := memoryctl.Run(ctx, opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		stop()
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "memoryctl: %v\n", err)
	if errors.Is(err, memoryctl.ErrUsage) {
		fmt.Fprint(os.Stderr, memoryctl.Usage)
		os.Exit(2)
	}
	os.Exit(1)
}
