package models_test

import (
	"testing"

	"github.com/atlas-tuning/arduino/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const program = `
name: idle
search: estimate
values:
  - name: coolant
    kind: variable
    value: "85"
  - name: idle_target
    image: {offset: 0x7001, type: uint8, scale: 10}
inputs:
  - name: crank
    window: 16
tables:
  - name: fuel
    dimensions:
      - source: crank_freq
        anchors: [0, "1e2"]
      - source: coolant
        integration: floor
        anchors: [0x10, 90]
    data: [1, 2, 3, 4]
  - name: trim
    type: feedback
    dimensions:
      - {source: coolant, anchors: [0]}
    data: [1]
    feedback: {real: coolant, target: idle_target, window: 8}
`

func TestProgramConfig_Decode(t *testing.T) {
	var cfg models.ProgramConfig
	require.NoError(t, yaml.Unmarshal([]byte(program), &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "estimate", cfg.Search)
	assert.Equal(t, models.Number(85), cfg.Values[0].Value)
	assert.Equal(t, models.Address(0x7001), cfg.Values[1].Image.Offset)
	assert.Equal(t, 10.0, cfg.Values[1].Image.ScaleOrOne())

	fuel := cfg.Tables[0]
	assert.Equal(t, models.TableTypePlain, fuel.Kind())
	assert.Equal(t, 4, fuel.Cells())
	assert.Equal(t, []float64{0, 100}, models.Floats(fuel.Dimensions[0].Anchors))
	assert.Equal(t, []float64{16, 90}, models.Floats(fuel.Dimensions[1].Anchors))

	assert.Equal(t, models.TableTypeFeedback, cfg.Tables[1].Kind())
	assert.Equal(t, 8, cfg.Tables[1].Feedback.Window)
}

func TestNumber_Invalid(t *testing.T) {
	var n models.Number
	assert.Error(t, yaml.Unmarshal([]byte(`fast`), &n))

	var a models.Address
	assert.Error(t, yaml.Unmarshal([]byte(`[1]`), &a))
}

func TestProgramConfig_ValidateCollectsEverything(t *testing.T) {
	cfg := models.ProgramConfig{
		Values: []models.ValueConfig{
			{Name: "rpm"},
			{Name: "rpm", Kind: "sensor"},
		},
		Inputs: []models.InputConfig{{Name: "crank"}},
		Tables: []models.TableConfig{
			{Name: "empty"},
			{
				Name:       "short",
				Dimensions: []models.DimensionConfig{{Source: "rpm", Anchors: []models.Number{1, 2}}},
				Data:       []models.Number{1},
			},
			{
				Name:       "fb",
				Type:       models.TableTypeFeedback,
				Dimensions: []models.DimensionConfig{{Source: "rpm", Anchors: []models.Number{1}}},
				Data:       []models.Number{1},
			},
			{
				Name:       "img",
				Type:       "lookup",
				Dimensions: []models.DimensionConfig{{Anchors: []models.Number{1}}},
				Image:      &models.CellConfig{DataType: "float32"},
			},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	// duplicate, bad kind, window, no dims, short data, missing feedback,
	// missing source, bad data type, bad table type
	assert.Len(t, multierr.Errors(err), 9)
}

func TestProgramConfig_NoTables(t *testing.T) {
	cfg := models.ProgramConfig{Name: "nothing"}
	assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidConfig)
}

func TestCellConfig_Width(t *testing.T) {
	assert.Equal(t, 1, (&models.CellConfig{}).Width())
	assert.Equal(t, 1, (&models.CellConfig{DataType: "int8"}).Width())
	assert.Equal(t, 2, (&models.CellConfig{DataType: "uint16"}).Width())
	assert.Equal(t, 2, (&models.CellConfig{DataType: "int16"}).Width())
}
