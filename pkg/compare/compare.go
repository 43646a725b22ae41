package compare

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/pterm/pterm"
)

var ErrShapeMismatch = errors.New("compare: cell counts differ")

// Stats summarizes a difference map.
type Stats struct {
	Cells       int
	Changed     int
	Mean        float64 // over changed cells
	MaxIncrease float64
	MaxDecrease float64
	MaxAbs      float64
}

// Diff returns after - before per cell.
func Diff(before, after []float64) ([]float64, error) {
	if len(before) != len(after) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, len(before), len(after))
	}

	diff := make([]float64, len(before))
	for i := range before {
		diff[i] = after[i] - before[i]
	}

	return diff, nil
}

// Summarize computes Stats for a difference map.
func Summarize(diff []float64) Stats {
	s := Stats{Cells: len(diff)}

	var total float64

	for _, d := range diff {
		if d == 0 {
			continue
		}

		s.Changed++
		total += d

		if d > s.MaxIncrease {
			s.MaxIncrease = d
		}
		if d < s.MaxDecrease {
			s.MaxDecrease = d
		}
		if math.Abs(d) > s.MaxAbs {
			s.MaxAbs = math.Abs(d)
		}
	}

	if s.Changed > 0 {
		s.Mean = total / float64(s.Changed)
	}

	return s
}

// CompareTable displays the difference between two sets of cells laid out
// like t (dimension 0 across).
func CompareTable(title string, t *table.Table, before, after []float64, unit string) error {
	diff, err := Diff(before, after)
	if err != nil {
		return err
	}

	if len(diff) != t.Len() {
		return fmt.Errorf("%w: %d vs %s with %d", ErrShapeMismatch, len(diff), t.Name(), t.Len())
	}

	pterm.Println()
	pterm.DefaultSection.Printf("Comparing: %s\n", title)

	stats := Summarize(diff)

	pterm.Info.Printf("Changed cells: %d / %d (%.1f%%)\n",
		stats.Changed, stats.Cells, float64(stats.Changed)/float64(stats.Cells)*100)
	pterm.Info.Printf("Average change: %.4f %s\n", stats.Mean, unit)
	pterm.Info.Printf("Max increase: %.4f %s\n", stats.MaxIncrease, unit)
	pterm.Info.Printf("Max decrease: %.4f %s\n", stats.MaxDecrease, unit)

	// Visualize differences
	pterm.Println("\nDifference Map (after - before):")
	pterm.DefaultBox.Println(VisualizeDifferences(t, diff, stats.MaxAbs))

	return nil
}

// VisualizeDifferences renders one symbol per cell.
func VisualizeDifferences(t *table.Table, diff []float64, maxAbs float64) string {
	var result strings.Builder

	cols := t.Dimension(0).Anchors()

	// Anchor header
	result.WriteString("      x → |")
	for _, c := range cols {
		result.WriteString(fmt.Sprintf("%-6s", trim(fmt.Sprintf("%g", c), 5)))
	}
	result.WriteString("\n")
	result.WriteString("          |" + strings.Repeat("-", len(cols)*6) + "\n")

	// Data rows
	for start := 0; start < len(diff); start += len(cols) {
		result.WriteString(fmt.Sprintf("%9s |", rowLabel(t, start/len(cols))))
		for _, val := range diff[start : start+len(cols)] {
			result.WriteString(getDiffSymbol(val, maxAbs) + "   ")
		}
		result.WriteString("\n")
	}

	// Legend
	result.WriteString("\nLegend: ")
	result.WriteString(pterm.FgBlue.Sprint("▼▼") + " Large Decrease  ")
	result.WriteString(pterm.FgCyan.Sprint("▼ ") + " Small Decrease  ")
	result.WriteString(pterm.FgGray.Sprint("··") + " No Change  ")
	result.WriteString(pterm.FgYellow.Sprint("▲ ") + " Small Increase  ")
	result.WriteString(pterm.FgRed.Sprint("▲▲") + " Large Increase")

	return result.String()
}

func rowLabel(t *table.Table, row int) string {
	if t.NumDimensions() < 2 {
		return ""
	}

	parts := make([]string, 0, t.NumDimensions()-1)
	for _, d := range t.Dimensions()[1:] {
		anchors := d.Anchors()
		parts = append(parts, fmt.Sprintf("%g", anchors[row%len(anchors)]))
		row /= len(anchors)
	}

	return trim(strings.Join(parts, "/"), 8) + " ↓"
}

func trim(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}

	return s
}

func getDiffSymbol(val, maxAbs float64) string {
	if val == 0 || maxAbs == 0 {
		return pterm.FgGray.Sprint("··")
	}

	normalized := val / maxAbs

	if normalized < -0.5 {
		return pterm.FgBlue.Sprint("▼▼")
	} else if normalized < -0.1 {
		return pterm.FgCyan.Sprint("▼ ")
	} else if normalized > 0.5 {
		return pterm.FgRed.Sprint("▲▲")
	} else if normalized > 0.1 {
		return pterm.FgYellow.Sprint("▲ ")
	}

	return pterm.FgGray.Sprint("· ")
}
