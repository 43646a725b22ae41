package models

import (
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Table types.
const (
	TableTypePlain    = "table"
	TableTypeFeedback = "feedback"
	TableTypeState    = "state"
)

// Value kinds.
const (
	ValueKindConstant = "constant"
	ValueKindVariable = "variable"
)

// Number is a float that may be written in YAML as a number or a string
// ("0x40", "1e3", "12.5").
type Number float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return err
	}

	*n = Number(f)

	return nil
}

// Address is a byte offset into a calibration image, usually written in hex.
type Address int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Address) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	i, err := cast.ToInt64E(raw)
	if err != nil {
		return err
	}

	*a = Address(i)

	return nil
}

// Floats converts a Number slice.
func Floats(numbers []Number) []float64 {
	out := make([]float64, len(numbers))
	for i, n := range numbers {
		out[i] = float64(n)
	}

	return out
}

// ProgramConfig is one program: its values, pulse inputs and tables.
type ProgramConfig struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Image       string        `yaml:"image,omitempty"`
	Search      string        `yaml:"search,omitempty"`
	Values      []ValueConfig `yaml:"values,omitempty"`
	Inputs      []InputConfig `yaml:"inputs,omitempty"`
	Tables      []TableConfig `yaml:"tables"`
}

// ValueConfig is a named scalar. Constants may be read from the calibration
// image instead of being written inline.
type ValueConfig struct {
	Name        string      `yaml:"name"`
	Kind        string      `yaml:"kind,omitempty"`
	Value       Number      `yaml:"value,omitempty"`
	Image       *CellConfig `yaml:"image,omitempty"`
	Unit        string      `yaml:"unit,omitempty"`
	Description string      `yaml:"description,omitempty"`
}

// InputConfig is a pulse input. Its frequency is published as
// <name>_freq.
type InputConfig struct {
	Name   string `yaml:"name"`
	Window int    `yaml:"window"`
}

// CellConfig locates raw cells in the calibration image. The real value is
// raw*Scale + Offset2.
type CellConfig struct {
	Offset   Address `yaml:"offset"`
	DataType string  `yaml:"type,omitempty"` // uint8, uint16, int8, int16
	Scale    Number  `yaml:"scale,omitempty"`
	Offset2  Number  `yaml:"add,omitempty"`
}

// DimensionConfig is one axis of a table.
type DimensionConfig struct {
	Source      string   `yaml:"source"`
	Integration string   `yaml:"integration,omitempty"`
	Anchors     []Number `yaml:"anchors"`
}

// FeedbackConfig turns a table into a feedback table.
type FeedbackConfig struct {
	Real   string   `yaml:"real"`
	Target string   `yaml:"target"`
	Window int      `yaml:"window"`
	Seed   []Number `yaml:"seed,omitempty"`
}

// StateConfig configures a state table.
type StateConfig struct {
	Persist bool `yaml:"persist,omitempty"`
}

// TableConfig is one table. Data is either inline or read from the image.
type TableConfig struct {
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type,omitempty"`
	Search      string            `yaml:"search,omitempty"`
	Unit        string            `yaml:"unit,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Dimensions  []DimensionConfig `yaml:"dimensions"`
	Data        []Number          `yaml:"data,omitempty"`
	Image       *CellConfig       `yaml:"image,omitempty"`
	Feedback    *FeedbackConfig   `yaml:"feedback,omitempty"`
	State       *StateConfig      `yaml:"state,omitempty"`
}

// Cells returns the number of data cells implied by the dimensions.
func (t *TableConfig) Cells() int {
	if len(t.Dimensions) == 0 {
		return 0
	}

	n := 1
	for _, d := range t.Dimensions {
		n *= len(d.Anchors)
	}

	return n
}

// Kind returns Type with the plain table as default.
func (t *TableConfig) Kind() string {
	if t.Type == "" {
		return TableTypePlain
	}

	return t.Type
}
