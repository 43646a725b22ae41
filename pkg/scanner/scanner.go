package scanner

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/atlas-tuning/arduino/pkg/models"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

// Shape is a candidate table size.
type Shape struct {
	Rows int
	Cols int
}

// Options tunes a scan. Zero fields take the defaults.
type Options struct {
	Shapes     []Shape
	Step       int
	MinRange8  float64
	MinRange16 float64
}

var DefaultOptions = Options{
	Shapes:     []Shape{{8, 8}, {8, 16}, {16, 16}},
	Step:       0x40,
	MinRange8:  10,
	MinRange16: 100,
}

func (o Options) withDefaults() Options {
	if len(o.Shapes) == 0 {
		o.Shapes = DefaultOptions.Shapes
	}
	if o.Step <= 0 {
		o.Step = DefaultOptions.Step
	}
	if o.MinRange8 <= 0 {
		o.MinRange8 = DefaultOptions.MinRange8
	}
	if o.MinRange16 <= 0 {
		o.MinRange16 = DefaultOptions.MinRange16
	}

	return o
}

// ScanResult holds information about a potential table location
type ScanResult struct {
	Offset   int
	Rows     int
	Cols     int
	DataType string
	Min      float64
	Max      float64
	Variance float64
	Preview  string
}

// CellConfig locates the candidate's raw cells.
func (r ScanResult) CellConfig() models.CellConfig {
	return models.CellConfig{
		Offset:   models.Address(r.Offset),
		DataType: r.DataType,
		Scale:    1,
	}
}

// TableConfig is a starting point for a program definition: the anchors are
// cell indices and the sources are placeholders to be renamed.
func (r ScanResult) TableConfig(name string) models.TableConfig {
	cell := r.CellConfig()

	return models.TableConfig{
		Name: name,
		Dimensions: []models.DimensionConfig{
			{Source: "x", Anchors: indices(r.Cols)},
			{Source: "y", Anchors: indices(r.Rows)},
		},
		Image:       &cell,
		Description: fmt.Sprintf("candidate at 0x%04X, variance %.1f", r.Offset, r.Variance),
	}
}

func indices(n int) []models.Number {
	out := make([]models.Number, n)
	for i := range out {
		out[i] = models.Number(i)
	}

	return out
}

// Scan looks for regions of an image that vary like calibration tables.
func Scan(data []byte, opts Options) []ScanResult {
	opts = opts.withDefaults()

	var results []ScanResult

	for _, size := range opts.Shapes {
		cellCount := size.Rows * size.Cols

		// Scan for uint8 values
		for offset := 0; offset+cellCount <= len(data); offset += opts.Step {
			if result := scanCells(data, offset, size, "uint8", opts.MinRange8); result != nil {
				results = append(results, *result)
			}
		}

		// Scan for uint16 values (need 2 bytes per cell)
		for offset := 0; offset+cellCount*2 <= len(data); offset += opts.Step {
			if result := scanCells(data, offset, size, "uint16", opts.MinRange16); result != nil {
				results = append(results, *result)
			}
		}
	}

	return results
}

func scanCells(data []byte, offset int, size Shape, dataType string, minRange float64) *ScanResult {
	cellCount := size.Rows * size.Cols
	values := make([]float64, cellCount)
	preview := ""

	for i := 0; i < cellCount; i++ {
		if dataType == "uint16" {
			val := binary.LittleEndian.Uint16(data[offset+i*2:])
			values[i] = float64(val)
			if i < 4 {
				preview += fmt.Sprintf("%04X ", val)
			}
		} else {
			values[i] = float64(data[offset+i])
			if i < 8 {
				preview += fmt.Sprintf("%02X ", data[offset+i])
			}
		}
	}

	min, max, variance := calculateStats(values)

	// Check if variance is good enough
	if (max-min) < minRange || max == 0 {
		return nil
	}

	return &ScanResult{
		Offset:   offset,
		Rows:     size.Rows,
		Cols:     size.Cols,
		DataType: dataType,
		Min:      min,
		Max:      max,
		Variance: variance,
		Preview:  preview + "...",
	}
}

func calculateStats(values []float64) (float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	min := values[0]
	max := values[0]
	sum := 0.0

	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}

	avg := sum / float64(len(values))

	// Calculate variance
	variance := 0.0
	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}
	variance /= float64(len(values))

	return min, max, variance
}

// ScanForMaps scans an image file, prints the candidates and, when yamlOut
// is set, writes them as table definitions to that file.
func ScanForMaps(filename, yamlOut string) {
	spinner, _ := pterm.DefaultSpinner.Start("Scanning image for table locations...")

	data, err := os.ReadFile(filename)
	if err != nil {
		spinner.Fail("Error reading file")
		pterm.Error.Printf("Error: %v\n", err)
		return
	}

	spinner.Success(fmt.Sprintf("Image loaded: %d bytes (0x%X)", len(data), len(data)))

	pterm.Println()
	pterm.DefaultSection.Println("Potential Table Locations")

	results := Scan(data, DefaultOptions)
	displayResults(results)

	if yamlOut == "" || len(results) == 0 {
		return
	}

	if err := WriteCandidates(yamlOut, filename, results); err != nil {
		pterm.Error.Printf("Failed to write candidates: %v\n", err)
		return
	}

	pterm.Success.Printf("Wrote %d candidate table(s) to %s\n", len(results), yamlOut)
}

// WriteCandidates writes a program definition with one table per result.
func WriteCandidates(path, image string, results []ScanResult) error {
	cfg := models.ProgramConfig{
		Name:  "scan",
		Image: image,
		Values: []models.ValueConfig{
			{Name: "x", Kind: models.ValueKindVariable},
			{Name: "y", Kind: models.ValueKindVariable},
		},
	}

	for _, r := range results {
		cfg.Tables = append(cfg.Tables, r.TableConfig(fmt.Sprintf("%s_%04x_%dx%d", r.DataType, r.Offset, r.Rows, r.Cols)))
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func displayResults(results []ScanResult) {
	if len(results) == 0 {
		pterm.Info.Println("No potential tables found")
		return
	}

	tableData := pterm.TableData{
		{"Offset", "Size", "Type", "Min", "Max", "Variance", "Preview"},
	}

	for _, result := range results {
		tableData = append(tableData, []string{
			fmt.Sprintf("0x%04X", result.Offset),
			fmt.Sprintf("%dx%d", result.Rows, result.Cols),
			result.DataType,
			fmt.Sprintf("%.0f", result.Min),
			fmt.Sprintf("%.0f", result.Max),
			fmt.Sprintf("%.1f", result.Variance),
			result.Preview,
		})
	}

	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
	pterm.Info.Printf("\nFound %d potential table(s)\n", len(results))
}
