package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
	"github.com/danielpatrickdp/causal-transducer/internal/config"
	"github.com/danielpatrickdp/causal-transducer/internal/dataio"
	"github.com/danielpatrickdp/causal-transducer/internal/filter"
	"github.com/danielpatrickdp/causal-transducer/internal/pipeline"
)

// #region main

func main() {
	trainInput := flag.String("train-input", "", "training input sequence (.dat)")
	trainOutput := flag.String("train-output", "", "training output sequence (.dat)")
	inputPath := flag.String("input", "", "sequence to filter; defaults to the training input")
	outputPath := flag.String("output", "", "sequence to filter; defaults to the training output")
	configPath := flag.String("config", "", "path to run configuration YAML")
	fixturePath := flag.String("fixture", "", "compare the trajectory against expected states from a JSON fixture")
	flag.Parse()

	if *trainInput == "" || *trainOutput == "" || *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: filter --train-input X.dat --train-output Y.dat --config run.yaml [--input X2.dat --output Y2.dat] [--fixture expected.json]")
		os.Exit(2)
	}

	os.Exit(run(*trainInput, *trainOutput, *inputPath, *outputPath, *configPath, *fixturePath))
}

// #endregion main

// #region run

func run(trainInput, trainOutput, inputPath, outputPath, configPath, fixturePath string) int {
	file, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}
	cfg, err := file.ToPipelineConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	inputs, outputs, err := dataio.ReadPair(trainInput, trainOutput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load training data: %v\n", err)
		return 2
	}

	model, _, err := pipeline.Train(inputs, outputs, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "train: %v\n", err)
		return 2
	}

	// The prediction pair defaults to the training pair (round-trip mode).
	filterIn, filterOut := inputs, outputs
	if inputPath != "" || outputPath != "" {
		if inputPath == "" || outputPath == "" {
			fmt.Fprintln(os.Stderr, "--input and --output must be given together")
			return 2
		}
		filterIn, filterOut, err = dataio.ReadPair(inputPath, outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load prediction data: %v\n", err)
			return 2
		}
	}

	traj, err := filter.Run(model, filterIn, filterOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "filter: %v\n", err)
		return 2
	}

	if fixturePath != "" {
		expected, err := loadFixture(fixturePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
			return 2
		}
		return printComparison(traj, expected)
	}

	printTrajectory(traj, filterIn, filterOut)
	return 0
}

// #endregion run

// #region fixture

// Fixture is the JSON structure carrying the expected per-position state
// labels ("U" for unsynchronized, otherwise "S<n>").
type Fixture struct {
	Description string   `json:"description"`
	Expected    []string `json:"expected_states"`
}

func loadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// printComparison outputs an expected/actual table and returns the exit
// code: 0 when every position matches, 1 otherwise.
func printComparison(traj filter.Trajectory, f *Fixture) int {
	fmt.Printf("%-10s| %-10s| %-10s| %s\n", "Pos", "Expected", "Actual", "Match")
	fmt.Printf("%-10s+%-11s+%-11s+%s\n", "----------", "-----------", "-----------", "------")

	total := len(traj.Steps)
	if len(f.Expected) < total {
		total = len(f.Expected)
	}

	matches := 0
	for t := 0; t < total; t++ {
		got := stateLabel(traj.Steps[t])
		match := "DIFF"
		if got == f.Expected[t] {
			match = "OK"
			matches++
		}
		fmt.Printf("%-10d| %-10s| %-10s| %s\n", t, f.Expected[t], got, match)
	}

	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)
	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion fixture

// #region output

func stateLabel(s filter.Step) string {
	if !s.Synchronized {
		return "U"
	}
	return fmt.Sprintf("S%d", s.StateID)
}

func printTrajectory(traj filter.Trajectory, inputs, outputs []alphabet.Symbol) {
	fmt.Printf("%-8s| %-6s| %-6s| %-8s| %-10s| %s\n",
		"Pos", "In", "Out", "State", "Predicted", "P(out)")
	fmt.Printf("%-8s+%-7s+%-7s+%-9s+%-11s+%s\n",
		"--------", "-------", "-------", "---------", "-----------", "--------")

	for t, step := range traj.Steps {
		predicted := "-"
		prob := "-"
		if step.HasPrediction {
			predicted = string(step.Predicted)
			prob = fmt.Sprintf("%.4f", maxProb(step.Distribution))
		}
		fmt.Printf("%-8d| %-6s| %-6s| %-8s| %-10s| %s\n",
			t, inputs[t], outputs[t], stateLabel(step), predicted, prob)
	}

	fmt.Printf("\nSummary: %d positions, %d unsynchronized\n",
		len(traj.Steps), traj.UnsyncCount())
}

func maxProb(probs []float64) float64 {
	best := 0.0
	for _, p := range probs {
		if p > best {
			best = p
		}
	}
	return best
}

// #endregion output
