package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atlas-tuning/arduino/pkg/models"
	"github.com/atlas-tuning/arduino/pkg/program"
	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/atlas-tuning/arduino/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fuelTable(t *testing.T) *table.Table {
	t.Helper()

	rpm := table.MustDimension(value.Constant(0), table.Linear, 1000, 2000, 3000)
	load := table.MustDimension(value.Constant(0), table.Linear, 20, 80)

	tbl, err := table.New("Fuel Base", []*table.Dimension{rpm, load}, []float64{1, 1.5, 2, 2.5, 3, 3.25})
	require.NoError(t, err)

	return tbl
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, fuelTable(t), "ms"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"# Fuel Base",
		"# Shape: 3x2",
		"# Unit: ms",
		`y\x,1000,2000,3000`,
		"20,1,1.5,2",
		"80,2.5,3,3.25",
	}, lines)
}

func TestReadCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, fuelTable(t), "ms"))

	cells, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1.5, 2, 2.5, 3, 3.25}, cells)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader(`y\x,0` + "\n,abc\n"))
	assert.Error(t, err)
}

func TestRowLabel_ThreeDimensions(t *testing.T) {
	dims := []*table.Dimension{
		table.MustDimension(value.Constant(0), table.Linear, 0, 1),
		table.MustDimension(value.Constant(0), table.Linear, 10, 20),
		table.MustDimension(value.Constant(0), table.Linear, 5, 6),
	}

	assert.Equal(t, "10/5", rowLabel(dims, 0))
	assert.Equal(t, "20/5", rowLabel(dims, 1))
	assert.Equal(t, "10/6", rowLabel(dims, 2))
	assert.Equal(t, "", rowLabel(dims[:1], 0))
}

func TestImportTableFromCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuel.csv")

	require.NoError(t, os.WriteFile(path, []byte(`y\x,1000,2000,3000
20,1,1.5,2
80,2.5,4,3.25
`), 0o600))

	tbl := fuelTable(t)

	changed, err := ImportTableFromCSV(tbl, path)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	v, err := tbl.Data(4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	short := filepath.Join(dir, "short.csv")
	require.NoError(t, os.WriteFile(short, []byte("y\\x,1000\n20,1\n"), 0o600))

	_, err = ImportTableFromCSV(tbl, short)
	assert.ErrorIs(t, err, ErrCellCount)

	_, err = ImportTableFromCSV(tbl, filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestExportTablesToCSV_FeedbackWritesCorrection(t *testing.T) {
	cfg := &models.ProgramConfig{
		Name:   "export",
		Values: []models.ValueConfig{{Name: "lambda", Value: 1}},
		Tables: []models.TableConfig{{
			Name:       "Fuel Trim",
			Type:       models.TableTypeFeedback,
			Dimensions: []models.DimensionConfig{{Source: "lambda", Anchors: []models.Number{0, 2}}},
			Data:       []models.Number{1, 2},
			Feedback:   &models.FeedbackConfig{Real: "lambda", Target: "lambda", Window: 4},
		}},
	}

	p, err := program.Build(cfg)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	ExportTablesToCSV(p.Nodes(), dir)

	assert.FileExists(t, filepath.Join(dir, "fuel_trim.csv"))
	assert.FileExists(t, filepath.Join(dir, "fuel_trim_correction.csv"))

	n, err := p.Node("Fuel Trim")
	require.NoError(t, err)

	changed, err := ImportTableFromCSV(n.Feedback().Correction(), filepath.Join(dir, "fuel_trim_correction.csv"))
	require.NoError(t, err)
	assert.Zero(t, changed)
}
