package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/openfluke/beamsum/layout"
	"github.com/openfluke/beamsum/pods"
)

// multiplyElements builds records value=i+1, multiplier=i+2.
func multiplyElements(n int) []layout.DataElement {
	out := make([]layout.DataElement, n)
	for i := range out {
		out[i] = layout.DataElement{Value: float32(i + 1), Multiplier: float32(i + 2)}
	}
	return out
}

func multiplyCmd() *cli.Command {
	var (
		s     settings
		count int64
	)

	return &cli.Command{
		Name:  "multiply",
		Usage: "Multiply value by multiplier for each record on the device",
		Flags: append(commonFlags(&s),
			&cli.Int64Flag{
				Name:        "count",
				Aliases:     []string{"n"},
				Usage:       "number of records",
				Value:       4,
				Destination: &count,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, _, done, err := setup(cmd, &s)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer done()
			if count <= 0 {
				return cli.Exit("error: --count must be positive", 1)
			}

			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			x, release, err := execContext(ctx, &s, log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer release()

			out, err := pods.Run(x, "multiply", pods.MultiplyIn{Elements: multiplyElements(int(count))})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			mo := out.(pods.MultiplyOut)
			return printResult(os.Stdout, result{Kernel: "multiply", Backend: mo.Backend, Label: "element", Values: mo.Values}, s.jsonOut)
		},
	}
}
