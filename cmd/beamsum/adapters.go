package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/openfluke/beamsum/detector"
)

func adaptersCmd() *cli.Command {
	var jsonOut bool

	return &cli.Command{
		Name:    "adapters",
		Aliases: []string{"ls"},
		Usage:   "List WebGPU adapters and whether they can run the kernels",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print reports as JSON", Destination: &jsonOut},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			reports, err := detector.Enumerate(detector.Compute)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if jsonOut {
				out, err := detector.JSON(reports)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				fmt.Println(out)
				return nil
			}
			printReports(os.Stdout, reports)
			return nil
		},
	}
}

func printReports(w io.Writer, reports []detector.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "no adapters found")
		return
	}
	for _, r := range reports {
		status := "compatible"
		if !r.Compatible {
			status = "unsupported: " + r.Reason
		}
		fmt.Fprintf(w, "[%d] %s\n", r.Index, r.Name)
		fmt.Fprintf(w, "    vendor:   %s (%s)\n", r.Vendor, r.VendorID)
		fmt.Fprintf(w, "    backend:  %s, %s\n", r.Backend, r.AdapterType)
		fmt.Fprintf(w, "    driver:   %s\n", r.Driver)
		fmt.Fprintf(w, "    limits:   %d invocations/group, %d groups/dim, %d B shared\n",
			r.Limits.MaxComputeInvocationsPerWorkgroup,
			r.Limits.MaxComputeWorkgroupsPerDimension,
			r.Limits.MaxComputeWorkgroupStorageSize)
		fmt.Fprintf(w, "    status:   %s\n", status)
	}
}
