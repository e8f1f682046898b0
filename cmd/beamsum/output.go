package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

type result struct {
	Kernel  string    `json:"kernel"`
	Backend string    `json:"backend"`
	Label   string    `json:"-"`
	Values  []float32 `json:"values"`
}

// printResult lists the non-zero outputs, or the whole result as JSON.
func printResult(w io.Writer, r result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "%s on %s\n", r.Kernel, r.Backend)
	nonZero := 0
	for i, v := range r.Values {
		if v == 0 {
			continue
		}
		fmt.Fprintf(w, "%s[%d] = %g\n", r.Label, i, v)
		nonZero++
	}
	if nonZero == 0 {
		fmt.Fprintf(w, "all %d outputs are zero\n", len(r.Values))
	}
	return nil
}
