package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"datalens/internal/dataprocessing"
)

func main() {
	jsonOut := flag.Bool("json", false, "emit statistics as JSON instead of a table")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: tablestat [-json] <file.xlsx>\n")
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read file", slog.String("path", path), slog.String("error", err.Error()))
		os.Exit(1)
	}

	table, err := dataprocessing.Parse(data)
	if err != nil {
		slog.Error("Failed to parse workbook", slog.String("path", path), slog.String("error", err.Error()))
		os.Exit(1)
	}

	stats := dataprocessing.ComputeStatistics(table)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"rows":       table.RowCount,
			"columns":    table.ColumnCount,
			"statistics": stats,
		}); err != nil {
			slog.Error("Failed to encode output", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	fmt.Printf("%s: %d rows, %d columns\n\n", path, table.RowCount, table.ColumnCount)

	cols := make([]string, 0, len(stats))
	for col := range stats {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	fmt.Printf("%-24s %8s %12s %12s %12s %12s %12s\n",
		"column", "count", "mean", "min", "max", "std", "median")
	for _, col := range cols {
		s := stats[col]
		fmt.Printf("%-24s %8d %12.3f %12.3f %12.3f %12.3f %12.3f\n",
			col, s.Count, s.Mean, s.Min, s.Max, s.Std, s.Median)
	}
}
