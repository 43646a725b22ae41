package reader

import (
	"fmt"
	"os"

	"github.com/atlas-tuning/arduino/pkg/models"
	"gopkg.in/yaml.v3"
)

// LoadProgramConfig reads and validates a program definition.
func LoadProgramConfig(filename string) (*models.ProgramConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg, err := ParseProgramConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return cfg, nil
}

// ParseProgramConfig decodes and validates a YAML program definition.
func ParseProgramConfig(data []byte) (*models.ProgramConfig, error) {
	cfg := &models.ProgramConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
