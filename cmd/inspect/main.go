package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/causal-transducer/internal/runlog"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the run log database")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show a single run in detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of a table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db runs.db [--last N] [--run id] [--json]")
		os.Exit(2)
	}

	os.Exit(run(*dbPath, *last, *runID, *jsonOut))
}

// #endregion main

// #region run

func run(dbPath string, last int, runID string, jsonOut bool) int {
	store, err := runlog.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open run log: %v\n", err)
		return 2
	}
	defer store.Close()

	if runID != "" {
		rec, err := store.Get(runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get run: %v\n", err)
			return 2
		}
		if jsonOut {
			return printJSON(rec)
		}
		printDetail(rec)
		return 0
	}

	runs, err := store.List(last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list runs: %v\n", err)
		return 2
	}
	if jsonOut {
		return printJSON(runs)
	}
	printTable(runs)
	return 0
}

// #endregion run

// #region output

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		return 2
	}
	fmt.Println(string(data))
	return 0
}

func printTable(runs []runlog.Run) {
	fmt.Printf("%-36s| %-20s| %-5s| %-8s| %-7s| %-9s| %s\n",
		"Run", "Created", "L_max", "Alpha", "States", "Converged", "Data")
	fmt.Printf("%-36s+%-21s+%-6s+%-9s+%-8s+%-10s+%s\n",
		"------------------------------------", "---------------------",
		"------", "---------", "--------", "----------", "------")
	for _, r := range runs {
		converged := "yes"
		if !r.Converged {
			converged = "NO"
		}
		fmt.Printf("%-36s| %-20s| %-5d| %-8.4f| %-7d| %-9s| %s\n",
			r.RunID, r.CreatedAt.Format(time.RFC3339), r.LMax, r.Alpha,
			r.StateCount, converged, r.OutputFile)
	}
}

func printDetail(r runlog.Run) {
	fmt.Printf("run:        %s\n", r.RunID)
	fmt.Printf("model:      %s\n", r.ModelID)
	fmt.Printf("created:    %s\n", r.CreatedAt.Format(time.RFC3339Nano))
	fmt.Printf("data:       %s + %s\n", r.InputFile, r.OutputFile)
	fmt.Printf("parameters: l_max=%d alpha=%g\n", r.LMax, r.Alpha)
	fmt.Printf("states:     %d (%d recurrent)\n", r.StateCount, r.RecurrentCount)
	fmt.Printf("passes:     %d\n", r.Passes)
	fmt.Printf("converged:  %v\n", r.Converged)
	fmt.Printf("elapsed:    %d ms\n", r.ElapsedMs)
	if r.Notes != "" {
		fmt.Printf("notes:      %s\n", r.Notes)
	}
}

// #endregion output
