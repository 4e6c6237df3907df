package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/jeongseonghan/eqbench/internal/bench"
)

// RenderTable writes the sweep results as an aligned console table.
func RenderTable(w io.Writer, results []bench.PointResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{
		"Method", "Eb/No (dB)", "BER", "Theory", "Errors", "Bits", "Blocks", "Max Burst", "Notes",
	})
	table.SetAutoFormatHeaders(false)

	for _, r := range results {
		notes := ""
		if r.Coded != nil {
			notes = fmt.Sprintf("%d/%d frames, %d erased shards",
				r.Coded.Recovered, r.Coded.Frames, r.Coded.ErasedShards)
		}
		table.Append([]string{
			string(r.Method),
			fmt.Sprintf("%.1f", r.EbNoDB),
			formatBER(r.BER),
			formatBER(r.TheoryBER),
			fmt.Sprintf("%d", r.Errors),
			fmt.Sprintf("%d", r.Bits),
			fmt.Sprintf("%d", r.Blocks),
			fmt.Sprintf("%d", r.Burst.MaxLen),
			notes,
		})
	}
	table.Render()
}

func formatBER(ber float64) string {
	if ber == 0 {
		return "0"
	}
	return fmt.Sprintf("%.3e", ber)
}
