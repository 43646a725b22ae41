package models

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var ErrInvalidConfig = errors.New("invalid program config")

// Validate checks the config for problems that do not need the image or the
// other tables to detect. Every problem found is reported.
func (c *ProgramConfig) Validate() error {
	var err error

	names := make(map[string]string)
	claim := func(name, what string) {
		if name == "" {
			err = multierr.Append(err, fmt.Errorf("%w: %s without a name", ErrInvalidConfig, what))

			return
		}

		if prev, ok := names[name]; ok {
			err = multierr.Append(err, fmt.Errorf("%w: %s %q already defined as a %s", ErrInvalidConfig, what, name, prev))

			return
		}

		names[name] = what
	}

	for _, v := range c.Values {
		claim(v.Name, "value")

		switch v.Kind {
		case "", ValueKindConstant, ValueKindVariable:
		default:
			err = multierr.Append(err, fmt.Errorf("%w: value %q has unknown kind %q", ErrInvalidConfig, v.Name, v.Kind))
		}

		if v.Image != nil {
			err = multierr.Append(err, v.Image.validate("value "+v.Name))
		}
	}

	for _, in := range c.Inputs {
		claim(in.Name, "input")

		if in.Window <= 0 {
			err = multierr.Append(err, fmt.Errorf("%w: input %q needs a window > 0", ErrInvalidConfig, in.Name))
		}
	}

	if len(c.Tables) == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: no tables", ErrInvalidConfig))
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		claim(t.Name, "table")
		err = multierr.Append(err, t.validate())
	}

	return err
}

func (t *TableConfig) validate() error {
	var err error

	if len(t.Dimensions) == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: table %q has no dimensions", ErrInvalidConfig, t.Name))
	}

	for i, d := range t.Dimensions {
		if d.Source == "" {
			err = multierr.Append(err, fmt.Errorf("%w: table %q dimension %d has no source", ErrInvalidConfig, t.Name, i))
		}

		if len(d.Anchors) == 0 {
			err = multierr.Append(err, fmt.Errorf("%w: table %q dimension %d has no anchors", ErrInvalidConfig, t.Name, i))
		}
	}

	switch {
	case t.Image != nil && len(t.Data) > 0:
		err = multierr.Append(err, fmt.Errorf("%w: table %q has both inline data and an image source", ErrInvalidConfig, t.Name))
	case t.Image != nil:
		err = multierr.Append(err, t.Image.validate("table "+t.Name))
	case len(t.Data) != t.Cells():
		err = multierr.Append(err, fmt.Errorf("%w: table %q has %d cells, dimensions need %d",
			ErrInvalidConfig, t.Name, len(t.Data), t.Cells()))
	}

	switch t.Kind() {
	case TableTypePlain:
	case TableTypeFeedback:
		if t.Feedback == nil {
			err = multierr.Append(err, fmt.Errorf("%w: feedback table %q has no feedback section", ErrInvalidConfig, t.Name))

			break
		}

		if t.Feedback.Real == "" || t.Feedback.Target == "" {
			err = multierr.Append(err, fmt.Errorf("%w: feedback table %q needs real and target", ErrInvalidConfig, t.Name))
		}

		if t.Feedback.Window <= 0 {
			err = multierr.Append(err, fmt.Errorf("%w: feedback table %q needs a window > 0", ErrInvalidConfig, t.Name))
		}

		if len(t.Feedback.Seed) > 0 && len(t.Feedback.Seed) != t.Cells() {
			err = multierr.Append(err, fmt.Errorf("%w: feedback table %q has %d seed cells, dimensions need %d",
				ErrInvalidConfig, t.Name, len(t.Feedback.Seed), t.Cells()))
		}
	case TableTypeState:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: table %q has unknown type %q", ErrInvalidConfig, t.Name, t.Type))
	}

	return err
}

func (c *CellConfig) validate(owner string) error {
	switch c.DataType {
	case "", "uint8", "uint16", "int8", "int16":
	default:
		return fmt.Errorf("%w: %s has unknown data type %q", ErrInvalidConfig, owner, c.DataType)
	}

	if c.Offset < 0 {
		return fmt.Errorf("%w: %s has a negative offset", ErrInvalidConfig, owner)
	}

	return nil
}

// ScaleOrOne returns Scale, or 1 when unset.
func (c *CellConfig) ScaleOrOne() float64 {
	if c.Scale == 0 {
		return 1
	}

	return float64(c.Scale)
}

// Width returns the byte width of one raw cell.
func (c *CellConfig) Width() int {
	switch c.DataType {
	case "uint16", "int16":
		return 2
	default:
		return 1
	}
}
