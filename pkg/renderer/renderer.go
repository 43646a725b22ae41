package renderer

import (
	"fmt"
	"strings"
	"time"

	"github.com/atlas-tuning/arduino/pkg/profiler"
	"github.com/atlas-tuning/arduino/pkg/program"
	"github.com/atlas-tuning/arduino/pkg/reader"
	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/pterm/pterm"
)

// Display modes.
const (
	ModeValues  = "values"
	ModeHeatmap = "heatmap"
	ModeSymbols = "symbols"
)

// RenderTable displays a table's cells.
func RenderTable(t *table.Table, unit, description, displayMode string) {
	cells := t.Cells()
	min, max := reader.FindMinMax(cells)

	title := fmt.Sprintf("%s | %s | Range: %.2f-%.2f %s",
		t.Name(), shapeString(t.Shape()), min, max, unit)

	if description != "" {
		pterm.Info.Println(description)
	}

	pterm.DefaultBox.WithTitle(title).WithTitleTopLeft().Println(BuildTableString(t, displayMode, min, max))
}

// BuildTableString lays out the first two dimensions as a grid: anchors of
// dimension 0 across, dimension 1 down. Higher dimensions are printed as one
// grid per slice.
func BuildTableString(t *table.Table, displayMode string, min, max float64) string {
	var result strings.Builder

	dims := t.Dimensions()
	cols := dims[0].Anchors()
	rows := []float64{0}

	if len(dims) > 1 {
		rows = dims[1].Anchors()
	}

	slice := len(cols) * len(rows)
	cells := t.Cells()

	for start := 0; start < len(cells); start += slice {
		if len(dims) > 2 {
			result.WriteString(sliceLabel(t, start/slice) + "\n")
		}

		writeGrid(&result, cells[start:start+slice], cols, rows, len(dims) > 1, displayMode, min, max)

		if start+slice < len(cells) {
			result.WriteString("\n")
		}
	}

	// Legend
	if displayMode == ModeHeatmap {
		result.WriteString("\n" + getHeatmapLegend())
	} else if displayMode == ModeSymbols {
		result.WriteString("\nLegend: ")
		result.WriteString(pterm.FgCyan.Sprint("░") + " Low  ")
		result.WriteString(pterm.FgGreen.Sprint("▒") + " Med  ")
		result.WriteString(pterm.FgYellow.Sprint("▓") + " High  ")
		result.WriteString(pterm.FgRed.Sprint("█") + " Max")
	}

	return result.String()
}

func writeGrid(result *strings.Builder, cells, cols, rows []float64, twoD bool, displayMode string, min, max float64) {
	width := 4
	if displayMode == ModeValues {
		width = 8
	}

	// Header
	result.WriteString(fmt.Sprintf("%9s |", "x →"))
	for _, c := range cols {
		result.WriteString(fmt.Sprintf("%*s", width, compact(c, width)))
	}
	result.WriteString("\n")

	// Separator
	result.WriteString(strings.Repeat(" ", 10) + "|" + strings.Repeat("-", len(cols)*width) + "\n")

	// Data rows
	for i, r := range rows {
		label := ""
		if twoD {
			label = compact(r, 7) + " ↓"
		}
		result.WriteString(fmt.Sprintf("%9s |", label))

		for j := range cols {
			value := cells[i*len(cols)+j]
			switch displayMode {
			case ModeValues:
				color := getColorStyle(value, min, max)
				result.WriteString(color.Sprintf("%8.2f", value))
			case ModeHeatmap:
				result.WriteString(getHeatmapBlock(value, min, max) + getHeatmapBlock(value, min, max))
			default:
				symbol := getSymbolForValue(value, min, max)
				result.WriteString(symbol + symbol + symbol + symbol)
			}
		}
		result.WriteString("\n")
	}
}

func sliceLabel(t *table.Table, slice int) string {
	dims := t.Dimensions()
	parts := make([]string, 0, len(dims)-2)

	for d := 2; d < len(dims); d++ {
		anchors := dims[d].Anchors()
		parts = append(parts, fmt.Sprintf("d%d=%s", d, compact(anchors[slice%len(anchors)], 10)))
		slice /= len(anchors)
	}

	return strings.Join(parts, " ")
}

func compact(v float64, width int) string {
	s := fmt.Sprintf("%g", v)
	if len(s) > width-1 {
		s = fmt.Sprintf("%.*g", max(width-5, 1), v)
	}

	return s
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, n := range shape {
		parts[i] = fmt.Sprintf("%d", n)
	}

	return strings.Join(parts, "x")
}

func getHeatmapBlock(value, min, max float64) string {
	if max == min {
		return pterm.BgGray.Sprint("  ")
	}

	normalized := (value - min) / (max - min)

	switch {
	case normalized < 0.2:
		return pterm.NewStyle(pterm.BgBlue, pterm.FgWhite).Sprint("▄▄")
	case normalized < 0.4:
		return pterm.NewStyle(pterm.BgCyan, pterm.FgBlack).Sprint("▄▄")
	case normalized < 0.6:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgBlack).Sprint("▄▄")
	case normalized < 0.8:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack).Sprint("▄▄")
	default:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite).Sprint("▄▄")
	}
}

func getHeatmapLegend() string {
	var result strings.Builder
	result.WriteString("Heatmap: ")
	result.WriteString(pterm.NewStyle(pterm.BgBlue, pterm.FgWhite).Sprint("▄▄") + " Very Low  ")
	result.WriteString(pterm.NewStyle(pterm.BgCyan, pterm.FgBlack).Sprint("▄▄") + " Low  ")
	result.WriteString(pterm.NewStyle(pterm.BgGreen, pterm.FgBlack).Sprint("▄▄") + " Medium  ")
	result.WriteString(pterm.NewStyle(pterm.BgYellow, pterm.FgBlack).Sprint("▄▄") + " High  ")
	result.WriteString(pterm.NewStyle(pterm.BgRed, pterm.FgWhite).Sprint("▄▄") + " Very High")
	return result.String()
}

func getSymbolForValue(value, min, max float64) string {
	if max == min {
		return pterm.FgGray.Sprint("·")
	}

	normalized := (value - min) / (max - min)

	switch {
	case normalized < 0.25:
		return pterm.FgCyan.Sprint("░")
	case normalized < 0.5:
		return pterm.FgGreen.Sprint("▒")
	case normalized < 0.75:
		return pterm.FgYellow.Sprint("▓")
	default:
		return pterm.FgRed.Sprint("█")
	}
}

func getColorStyle(value, min, max float64) *pterm.Style {
	if max == min {
		return pterm.NewStyle(pterm.FgGray)
	}

	normalized := (value - min) / (max - min)

	switch {
	case normalized < 0.25:
		return pterm.NewStyle(pterm.FgCyan)
	case normalized < 0.5:
		return pterm.NewStyle(pterm.FgGreen)
	case normalized < 0.75:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgRed)
	}
}

// ListTables displays every table of a program in evaluation order.
func ListTables(p *program.Program) {
	pterm.DefaultHeader.WithFullWidth().Println("Tables: " + p.Name())

	data := [][]string{
		{"Name", "Type", "Shape", "Sources", "Search", "Unit", "Description"},
	}

	for _, n := range p.Nodes() {
		cfg := n.Config()
		sources := make([]string, len(cfg.Dimensions))
		for i, d := range cfg.Dimensions {
			sources[i] = d.Source
		}

		data = append(data, []string{
			n.Name(),
			n.Kind(),
			shapeString(n.Table().Shape()),
			strings.Join(sources, ", "),
			n.Table().Search().String(),
			cfg.Unit,
			cfg.Description,
		})
	}

	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// DisplayTables renders the selected tables. name "all" selects every table.
// Feedback tables also show their learned correction.
func DisplayTables(p *program.Program, name, displayMode string) {
	pterm.DefaultHeader.WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgDarkGray)).
		WithTextStyle(pterm.NewStyle(pterm.FgLightWhite)).
		Println("Atlas Tables - " + p.Name())

	pterm.Println()

	nodes := Select(p, name)
	if len(nodes) == 0 {
		pterm.Error.Printf("Unknown table: %s\n", name)
		return
	}

	for i, n := range nodes {
		if i > 0 {
			pterm.Println()
		}

		cfg := n.Config()
		RenderTable(n.Table(), cfg.Unit, cfg.Description, displayMode)

		if fb := n.Feedback(); fb != nil {
			pterm.Println()
			RenderTable(fb.Correction(), "x", "Learned correction", displayMode)
		}
	}
}

// Select returns the tables whose name contains name, or all for "all".
func Select(p *program.Program, name string) []*program.Node {
	if name == "all" || name == "" {
		return p.Nodes()
	}

	if n, err := p.Node(name); err == nil {
		return []*program.Node{n}
	}

	var nodes []*program.Node
	for _, n := range p.Nodes() {
		if strings.Contains(strings.ToLower(n.Name()), strings.ToLower(name)) {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// RenderResults prints the outputs of one cycle.
func RenderResults(cycle int64, results []program.Result) {
	data := [][]string{{"Table", "Value"}}
	for _, r := range results {
		data = append(data, []string{r.Table, fmt.Sprintf("%.4f", r.Value)})
	}

	pterm.DefaultSection.Printf("Cycle %d\n", cycle)
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// RenderProfile prints the profiler tree with total, self and average times.
func RenderProfile(root *profiler.Profiler) {
	pterm.DefaultSection.Println("Profile")
	pterm.DefaultTree.WithRoot(profileNode(root)).Render()
}

func profileNode(p *profiler.Profiler) pterm.TreeNode {
	node := pterm.TreeNode{
		Text: fmt.Sprintf("%s  n=%d total=%s self=%s avg=%s",
			p.Name(), p.Executions(), round(p.TotalTime()), round(p.SelfTime()), round(p.AvgTotalTime())),
	}

	for _, c := range p.Children() {
		node.Children = append(node.Children, profileNode(c))
	}

	return node
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Microsecond)
}
