package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atlas-tuning/arduino/pkg/program"
	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cast"
)

// HeaderCell opens the anchor header row of an exported table.
const HeaderCell = `y\x`

var ErrCellCount = errors.New("export: cell count does not match table")

// ExportTablesToCSV writes the selected tables to exportPath, one file per
// table. Feedback tables also write <name>_correction.csv.
func ExportTablesToCSV(nodes []*program.Node, exportPath string) {
	// Create export directory if it doesn't exist
	if err := os.MkdirAll(exportPath, 0755); err != nil {
		pterm.Error.Printf("Failed to create export directory: %v\n", err)
		return
	}

	spinner, _ := pterm.DefaultSpinner.Start("Exporting tables to CSV...")

	for _, n := range nodes {
		tables := []*table.Table{n.Table()}
		if fb := n.Feedback(); fb != nil {
			tables = append(tables, fb.Correction())
		}

		for _, t := range tables {
			csvFilename := filepath.Join(exportPath, FileName(t.Name()))

			if err := exportTableToCSV(t, n.Config().Unit, csvFilename); err != nil {
				spinner.Warning(fmt.Sprintf("Failed to export %s: %v", t.Name(), err))
				continue
			}
		}
	}

	spinner.Success(fmt.Sprintf("Tables exported to %s", exportPath))
}

// FileName is the CSV file name used for a table.
func FileName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_") + ".csv"
}

func exportTableToCSV(t *table.Table, unit, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := WriteCSV(file, t, unit); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

// WriteCSV writes t with dimension 0 across and every combination of the
// remaining dimensions down.
func WriteCSV(w io.Writer, t *table.Table, unit string) error {
	writer := csv.NewWriter(w)

	// Write metadata as comments
	writer.Write([]string{fmt.Sprintf("# %s", t.Name())})
	writer.Write([]string{fmt.Sprintf("# Shape: %s", shape(t.Shape()))})
	writer.Write([]string{fmt.Sprintf("# Unit: %s", unit)})

	dims := t.Dimensions()
	cols := dims[0].Anchors()

	header := []string{HeaderCell}
	for _, a := range cols {
		header = append(header, cast.ToString(a))
	}
	writer.Write(header)

	cells := t.Cells()
	for start := 0; start < len(cells); start += len(cols) {
		row := []string{rowLabel(dims, start/len(cols))}
		for _, v := range cells[start : start+len(cols)] {
			row = append(row, cast.ToString(v))
		}
		writer.Write(row)
	}

	writer.Flush()

	return writer.Error()
}

// rowLabel names row r by the anchors of dimensions 1..N-1, joined by '/'.
func rowLabel(dims []*table.Dimension, r int) string {
	if len(dims) == 1 {
		return ""
	}

	parts := make([]string, 0, len(dims)-1)
	for _, d := range dims[1:] {
		anchors := d.Anchors()
		parts = append(parts, cast.ToString(anchors[r%len(anchors)]))
		r /= len(anchors)
	}

	return strings.Join(parts, "/")
}

func shape(s []int) string {
	parts := make([]string, len(s))
	for i, n := range s {
		parts[i] = cast.ToString(n)
	}

	return strings.Join(parts, "x")
}

// ReadCSV parses the cells of an exported table in flat order.
func ReadCSV(r io.Reader) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	// Parse CSV and find data start
	dataStart := -1
	for i, record := range records {
		if len(record) > 0 && record[0] == HeaderCell {
			dataStart = i + 1
			break
		}
	}

	if dataStart < 0 {
		return nil, errors.New("invalid CSV format: couldn't find data header")
	}

	var cells []float64
	for i, record := range records[dataStart:] {
		for j, field := range record[1:] {
			v, err := cast.ToFloat64E(strings.TrimSpace(field))
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}

			cells = append(cells, v)
		}
	}

	return cells, nil
}

// ImportTableFromCSV replaces the cells of t with the contents of a CSV file
// written by ExportTablesToCSV. It returns the number of cells that changed.
func ImportTableFromCSV(t *table.Table, csvFilename string) (int, error) {
	file, err := os.Open(csvFilename)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	cells, err := ReadCSV(file)
	if err != nil {
		return 0, err
	}

	if len(cells) != t.Len() {
		return 0, fmt.Errorf("%w: %s has %d cells, %s has %d", ErrCellCount, csvFilename, len(cells), t.Name(), t.Len())
	}

	changed := 0
	for i, v := range cells {
		old, err := t.SetData(i, v)
		if err != nil {
			return changed, err
		}

		if old != v {
			changed++
		}
	}

	return changed, nil
}
