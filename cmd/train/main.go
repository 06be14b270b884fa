package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/causal-transducer/internal/config"
	"github.com/danielpatrickdp/causal-transducer/internal/dataio"
	"github.com/danielpatrickdp/causal-transducer/internal/determinize"
	"github.com/danielpatrickdp/causal-transducer/internal/dot"
	"github.com/danielpatrickdp/causal-transducer/internal/infer"
	"github.com/danielpatrickdp/causal-transducer/internal/pipeline"
	"github.com/danielpatrickdp/causal-transducer/internal/runlog"
	"github.com/danielpatrickdp/causal-transducer/internal/transducer"
)

// #region main

func main() {
	inputPath := flag.String("input", "", "path to input symbol sequence (.dat)")
	outputPath := flag.String("output", "", "path to output symbol sequence (.dat)")
	configPath := flag.String("config", "", "path to run configuration YAML")
	dotPath := flag.String("dot", "", "write the transducer graph to this .dot file")
	dbPath := flag.String("db", "", "record the run in this SQLite run log")
	verbose := flag.Bool("verbose", false, "print pipeline stage progress to stderr")
	flag.Parse()

	if *inputPath == "" || *outputPath == "" || *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: train --input X.dat --output Y.dat --config run.yaml [--dot out.dot] [--db runs.db] [--verbose]")
		os.Exit(2)
	}

	os.Exit(run(*inputPath, *outputPath, *configPath, *dotPath, *dbPath, *verbose))
}

// #endregion main

// #region run

func run(inputPath, outputPath, configPath, dotPath, dbPath string, verbose bool) int {
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
	if verbose {
		cfg.Verbose = true
	}

	inputs, outputs, err := dataio.ReadPair(inputPath, outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load data: %v\n", err)
		return 2
	}

	model, report, err := pipeline.Train(inputs, outputs, cfg)
	if err != nil {
		printTrainFailure(err)
		recordRun(dbPath, inputPath, outputPath, cfg, report, "")
		var convErr *infer.ConvergenceError
		var detErr *determinize.DeterminizationError
		if errors.As(err, &convErr) || errors.As(err, &detErr) {
			return 1
		}
		return 2
	}

	printSummary(model, report)
	recordRun(dbPath, inputPath, outputPath, cfg, report, model.ID)

	if dotPath != "" {
		if err := dot.WriteFile(dotPath, model.Graph()); err != nil {
			fmt.Fprintf(os.Stderr, "export graph: %v\n", err)
			return 2
		}
		fmt.Printf("graph written to %s\n", dotPath)
	}
	return 0
}

// printTrainFailure reports a failed run with the diagnostics the errors
// carry; a partial partition is summarized, never presented as a model.
func printTrainFailure(err error) {
	fmt.Fprintf(os.Stderr, "train: %v\n", err)

	var convErr *infer.ConvergenceError
	if errors.As(err, &convErr) {
		fmt.Fprintf(os.Stderr, "partial partition: %d states after %d passes (consider a larger alpha or more passes)\n",
			len(convErr.Partial.Live()), convErr.Passes)
	}
}

// #endregion run

// #region summary

func printSummary(model *transducer.Model, report pipeline.Report) {
	fmt.Printf("model %s\n", model.ID)
	fmt.Printf("states: %d (%d recurrent), %d passes, %d ms\n",
		report.StateCount, report.RecurrentCount, report.Passes, report.ElapsedMs)
	if len(report.LowConfidence) > 0 {
		fmt.Printf("low-confidence assignments: %d\n", len(report.LowConfidence))
	}

	fmt.Printf("\n%-6s| %-10s| %-8s| %s\n", "State", "Kind", "Input", "P(output)")
	fmt.Printf("%-6s+%-11s+%-9s+%s\n", "------", "-----------", "---------", "----------")
	for _, s := range model.States {
		kind := "transient"
		if s.Recurrent {
			kind = "recurrent"
		}
		for _, x := range model.In.Symbols {
			probs, ok := model.Morph(s.ID, x)
			if !ok {
				continue
			}
			cells := ""
			for iy, y := range model.Out.Symbols {
				if iy > 0 {
					cells += "  "
				}
				cells += fmt.Sprintf("%s: %.4f", y, probs[iy])
			}
			fmt.Printf("S%-5d| %-10s| %-8s| %s\n", s.ID, kind, x, cells)
		}
	}
}

// #endregion summary

// #region run-log

func recordRun(dbPath, inputPath, outputPath string, cfg pipeline.Config, report pipeline.Report, modelID string) {
	if dbPath == "" {
		return
	}
	store, err := runlog.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open run log: %v\n", err)
		return
	}
	defer store.Close()

	notes := ""
	if !report.Converged {
		notes = "did not converge"
	}
	rec, err := store.Record(runlog.Run{
		ModelID:        modelID,
		InputFile:      inputPath,
		OutputFile:     outputPath,
		LMax:           cfg.LMax,
		Alpha:          cfg.Alpha,
		StateCount:     report.StateCount,
		RecurrentCount: report.RecurrentCount,
		Passes:         report.Passes,
		Converged:      report.Converged,
		ElapsedMs:      report.ElapsedMs,
		Notes:          notes,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "record run: %v\n", err)
		return
	}
	fmt.Printf("run %s recorded in %s\n", rec.RunID, dbPath)
}

// #endregion run-log
