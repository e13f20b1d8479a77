package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Height           int    `yaml:"height"`
	DefaultExtent    int    `yaml:"default_extent"`
	RangeLimit       int    `yaml:"range_limit"`
	RangeLimitCenter [3]int `yaml:"range_limit_center"`
	EnableExclusions bool   `yaml:"enable_exclusions"`

	Seed       int64 `yaml:"seed"`
	BuildBatch int   `yaml:"build_batch"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
