// Package editor writes table data back into a calibration image.
package editor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atlas-tuning/arduino/pkg/models"
	"github.com/atlas-tuning/arduino/pkg/program"
	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cast"
)

var (
	ErrOutOfBounds      = errors.New("cell outside the image")
	ErrOutOfRange       = errors.New("value does not fit the data type")
	ErrUnsupportedType  = errors.New("unsupported data type")
	ErrUnsafeMultiplier = errors.New("multiplier out of safe range (0.5-2.0)")
)

// CreateBackup creates a timestamped backup of the file. An existing backup
// is never overwritten; a numeric suffix is added instead.
func CreateBackup(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}

	timestamp := time.Now().Format("20060102_150405")
	base := filename + ".backup_" + timestamp

	for i := 0; ; i++ {
		backupName := base
		if i > 0 {
			backupName = fmt.Sprintf("%s_%d", base, i)
		}

		f, err := os.OpenFile(backupName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", err
		}

		return backupName, f.Close()
	}
}

// EncodeCell converts a real value to the raw little-endian bytes of cell.
func EncodeCell(cell models.CellConfig, v float64) ([]byte, error) {
	raw := math.Round((v - float64(cell.Offset2)) / cell.ScaleOrOne())
	if math.IsNaN(raw) {
		return nil, fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}

	var lo, hi float64
	switch cell.DataType {
	case "", "uint8":
		lo, hi = 0, math.MaxUint8
	case "uint16":
		lo, hi = 0, math.MaxUint16
	case "int8":
		lo, hi = math.MinInt8, math.MaxInt8
	case "int16":
		lo, hi = math.MinInt16, math.MaxInt16
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cell.DataType)
	}

	if raw < lo || raw > hi {
		return nil, fmt.Errorf("%w: %v is raw %.0f, %s holds %.0f..%.0f", ErrOutOfRange, v, raw, cell.DataType, lo, hi)
	}

	out := make([]byte, cell.Width())
	if len(out) == 2 {
		binary.LittleEndian.PutUint16(out, uint16(int64(raw)))
	} else {
		out[0] = byte(int64(raw))
	}

	return out, nil
}

// WriteCells encodes values into data at cell and returns how many cells
// changed. data is left untouched on error.
func WriteCells(data []byte, cell models.CellConfig, values []float64) (int, error) {
	width := cell.Width()
	start := int(cell.Offset)
	end := start + width*len(values)

	if start < 0 || end > len(data) {
		return 0, fmt.Errorf("%w: 0x%04X..0x%04X, image is 0x%X bytes", ErrOutOfBounds, start, end, len(data))
	}

	encoded := make([]byte, 0, end-start)
	for i, v := range values {
		raw, err := EncodeCell(cell, v)
		if err != nil {
			return 0, fmt.Errorf("cell %d: %w", i, err)
		}

		encoded = append(encoded, raw...)
	}

	changed := 0
	for i := 0; i < len(values); i++ {
		at := start + i*width
		if string(data[at:at+width]) != string(encoded[i*width:(i+1)*width]) {
			changed++
		}
	}

	copy(data[start:end], encoded)

	return changed, nil
}

// WriteTableToImage writes values into filename at cell. Nothing is written
// in a dry run or when no cell changes; otherwise a backup is made first.
func WriteTableToImage(filename string, cell models.CellConfig, values []float64, dryRun bool) (string, int, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", 0, err
	}

	changed, err := WriteCells(data, cell, values)
	if err != nil || dryRun || changed == 0 {
		return "", changed, err
	}

	backup, err := CreateBackup(filename)
	if err != nil {
		return "", 0, fmt.Errorf("creating backup: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return backup, 0, err
	}

	return backup, changed, nil
}

// ScaleTable multiplies every cell of t.
func ScaleTable(t *table.Table, multiplier float64) error {
	if multiplier < 0.5 || multiplier > 2.0 {
		return fmt.Errorf("%w: %v", ErrUnsafeMultiplier, multiplier)
	}

	for i, v := range t.Cells() {
		if _, err := t.SetData(i, v*multiplier); err != nil {
			return err
		}
	}

	return nil
}

// EditCell sets the cell at indices and returns its previous value.
func EditCell(t *table.Table, indices []int, v float64) (float64, error) {
	offset, err := t.Offset(indices)
	if err != nil {
		return 0, err
	}

	return t.SetData(offset, v)
}

// ImagePath resolves the program's image relative to the program file.
func ImagePath(programFile string, cfg *models.ProgramConfig) string {
	if cfg.Image == "" || filepath.IsAbs(cfg.Image) {
		return cfg.Image
	}

	return filepath.Join(filepath.Dir(programFile), cfg.Image)
}

// WriteProgramImage writes every image-backed table in nodes back to
// imagePath. A feedback table writes its base data, not the correction. All
// tables are patched in memory first; the image is backed up and written once.
func WriteProgramImage(nodes []*program.Node, imagePath string, dryRun bool) (string, error) {
	if imagePath == "" {
		return "", program.ErrNoImage
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", err
	}

	total := 0
	for _, n := range nodes {
		cfg := n.Config()
		if cfg.Image == nil {
			pterm.Info.Printf("%s has inline data, skipped\n", n.Name())
			continue
		}

		changed, err := WriteCells(data, *cfg.Image, n.Table().Cells())
		if err != nil {
			return "", fmt.Errorf("%s: %w", n.Name(), err)
		}

		total += changed

		if dryRun {
			pterm.Warning.Printf("DRY RUN - %s: %d cell(s) would change\n", n.Name(), changed)
		} else {
			pterm.Info.Printf("%s: %d cell(s) changed\n", n.Name(), changed)
		}
	}

	if dryRun || total == 0 {
		return "", nil
	}

	backup, err := CreateBackup(imagePath)
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}

	if err := os.WriteFile(imagePath, data, 0644); err != nil {
		return backup, err
	}

	pterm.Success.Printf("%d cell(s) written to %s, backup %s\n", total, imagePath, backup)

	return backup, nil
}

// InteractiveEdit provides an interactive menu for editing a program's tables
func InteractiveEdit(p *program.Program, imagePath string, dryRun bool) {
	pterm.DefaultHeader.WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgRed)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("⚠️  INTERACTIVE EDIT MODE - USE WITH EXTREME CAUTION  ⚠️")

	pterm.Warning.Println("Modified calibration tables change engine behaviour on the next cycle and in the image once written.")

	names := []string{}
	for _, n := range p.Nodes() {
		names = append(names, n.Name())
	}
	names = append(names, "Exit")

	for {
		selected, _ := pterm.DefaultInteractiveSelect.
			WithOptions(names).
			Show("Select table to edit:")

		if selected == "Exit" || selected == "" {
			pterm.Info.Println("Exiting edit mode.")
			return
		}

		n, err := p.Node(selected)
		if err != nil {
			pterm.Error.Println(err)
			return
		}

		action, _ := pterm.DefaultInteractiveSelect.
			WithOptions([]string{"Edit cell", "Scale table", "Write to image", "Back"}).
			Show("Select what to do with " + selected + ":")

		switch action {
		case "Edit cell":
			editCellPrompt(n.Table())
		case "Scale table":
			scalePrompt(n.Table())
		case "Write to image":
			ok, _ := pterm.DefaultInteractiveConfirm.Show("Write " + selected + " to " + imagePath + "?")
			if !ok {
				pterm.Info.Println("Cancelled.")
				continue
			}

			if _, err := WriteProgramImage([]*program.Node{n}, imagePath, dryRun); err != nil {
				pterm.Error.Printf("Failed to write: %v\n", err)
			}
		}
	}
}

func editCellPrompt(t *table.Table) {
	shape := t.Shape()

	raw, _ := pterm.DefaultInteractiveTextInput.Show(fmt.Sprintf("Enter cell indices, shape %v (e.g. 2,3)", shape))

	parts := strings.Split(raw, ",")
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			pterm.Error.Println("Invalid cell coordinates")
			return
		}

		indices = append(indices, i)
	}

	offset, err := t.Offset(indices)
	if err != nil {
		pterm.Error.Println(err)
		return
	}

	current, _ := t.Data(offset)
	pterm.Info.Printf("Current value at %v: %.2f\n", indices, current)

	newValueStr, _ := pterm.DefaultInteractiveTextInput.Show("Enter new value")
	newValue, err := cast.ToFloat64E(strings.TrimSpace(newValueStr))
	if err != nil {
		pterm.Error.Printf("Invalid value: %v\n", err)
		return
	}

	if _, err := EditCell(t, indices, newValue); err != nil {
		pterm.Error.Println(err)
		return
	}

	pterm.Success.Printf("Cell %v updated: %.2f -> %.2f\n", indices, current, newValue)
}

func scalePrompt(t *table.Table) {
	pterm.Warning.Println("This modifies ALL cells in the selected table!")

	multiplierStr, _ := pterm.DefaultInteractiveTextInput.Show("Enter multiplier (e.g., 1.1 for +10%, 0.9 for -10%)")
	multiplier, err := cast.ToFloat64E(strings.TrimSpace(multiplierStr))
	if err != nil {
		pterm.Error.Printf("Invalid multiplier: %v\n", err)
		return
	}

	if err := ScaleTable(t, multiplier); err != nil {
		pterm.Error.Println(err)
		return
	}

	pterm.Success.Printf("%s scaled by %.2f\n", t.Name(), multiplier)
}
