package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
	"github.com/danielpatrickdp/causal-transducer/internal/pipeline"
)

// #region file-types

// File is the YAML run configuration accepted by the cmd binaries.
type File struct {
	InputAlphabet   []string `yaml:"input_alphabet"`
	OutputAlphabet  []string `yaml:"output_alphabet"`
	LMax            int      `yaml:"l_max"`
	Alpha           float64  `yaml:"alpha"`
	MaxSplitPasses  int      `yaml:"max_split_passes"`
	MaxRefineRounds int      `yaml:"max_refine_rounds"`
	Workers         int      `yaml:"workers"`
	Verbose         bool     `yaml:"verbose"`
}

// #endregion file-types

// #region load

// Load reads and parses a YAML configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

// ToPipelineConfig builds and validates the pipeline configuration. Omitted
// iteration bounds fall back to the pipeline defaults; alphabets, l_max and
// alpha must be set explicitly.
func (f *File) ToPipelineConfig() (pipeline.Config, error) {
	in, err := alphabet.New("input", toSymbols(f.InputAlphabet))
	if err != nil {
		return pipeline.Config{}, err
	}
	out, err := alphabet.New("output", toSymbols(f.OutputAlphabet))
	if err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.DefaultConfig(in, out)
	cfg.LMax = f.LMax
	cfg.Alpha = f.Alpha
	cfg.Workers = f.Workers
	cfg.Verbose = f.Verbose
	if f.MaxSplitPasses > 0 {
		cfg.MaxSplitPasses = f.MaxSplitPasses
	}
	if f.MaxRefineRounds > 0 {
		cfg.MaxRefineRounds = f.MaxRefineRounds
	}

	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return cfg, nil
}

func toSymbols(raw []string) []alphabet.Symbol {
	out := make([]alphabet.Symbol, len(raw))
	for i, s := range raw {
		out[i] = alphabet.Symbol(s)
	}
	return out
}

// #endregion load
