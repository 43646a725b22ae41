package reader

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/atlas-tuning/arduino/pkg/models"
)

// ReadCells reads n cells described by cell from an image.
func ReadCells(r io.ReadSeeker, cell models.CellConfig, n int) ([]float64, error) {
	_, err := r.Seek(int64(cell.Offset), io.SeekStart)
	if err != nil {
		return nil, err
	}

	scale := cell.ScaleOrOne()
	data := make([]float64, n)

	for i := 0; i < n; i++ {
		raw, err := readRaw(r, cell.DataType)
		if err != nil {
			return nil, fmt.Errorf("cell %d at 0x%04X: %w", i, int64(cell.Offset)+int64(i*cell.Width()), err)
		}

		// Apply scale and offset
		data[i] = raw*scale + float64(cell.Offset2)
	}

	return data, nil
}

// ReadCellsFile opens filename and reads n cells from it.
func ReadCellsFile(filename string, cell models.CellConfig, n int) ([]float64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCells(f, cell, n)
}

func readRaw(r io.Reader, dataType string) (float64, error) {
	switch dataType {
	case "", "uint8":
		var val uint8
		if err := binary.Read(r, binary.LittleEndian, &val); err != nil {
			return 0, err
		}

		return float64(val), nil
	case "uint16":
		var val uint16
		if err := binary.Read(r, binary.LittleEndian, &val); err != nil {
			return 0, err
		}

		return float64(val), nil
	case "int8":
		var val int8
		if err := binary.Read(r, binary.LittleEndian, &val); err != nil {
			return 0, err
		}

		return float64(val), nil
	case "int16":
		var val int16
		if err := binary.Read(r, binary.LittleEndian, &val); err != nil {
			return 0, err
		}

		return float64(val), nil
	default:
		return 0, fmt.Errorf("unknown data type %q", dataType)
	}
}

// FindMinMax finds the minimum and maximum values in table data.
func FindMinMax(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	min := data[0]
	max := data[0]

	for _, val := range data {
		if val < min {
			min = val
		}
		if val > max {
			max = val
		}
	}

	return min, max
}
