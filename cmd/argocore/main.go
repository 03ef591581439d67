// Command argocore is the composition root that wires the core's ports
// to concrete adapters (a DuckDB state store, an in-process simulated
// broker, a native Go strategy runtime) and exposes backtest, paper,
// and live subcommands over them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "argocore",
		Usage: "Run a strategy bundle against historical, paper, or live market data",
		Commands: []*cli.Command{
			backtestCommand(),
			paperCommand(),
			liveCommand(),
			downloadCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
