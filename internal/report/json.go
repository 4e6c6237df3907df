package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeongseonghan/eqbench/internal/bench"
)

// WriteJSON saves the sweep results to path as indented JSON.
func WriteJSON(path string, results []bench.PointResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal results: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
