// dem_compare reports elevation-difference statistics between two DEMs over
// their common extent, with optional histogram and HTML report outputs.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/arsf-data/dem.toolkit/internal/cli"
	"github.com/arsf-data/dem.toolkit/internal/compare"
	"github.com/arsf-data/dem.toolkit/internal/version"
)

func main() {
	var histogram string
	var report string
	var dryRun bool

	flag.StringVar(&histogram, "histogram", "", "write a difference histogram PNG to this path")
	flag.StringVar(&report, "report", "", "write an interactive HTML report to this path")
	flag.BoolVar(&dryRun, "dry-run", false, "print external commands without running them")
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print build version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("dem_compare %s\n", version.String())
		os.Exit(cli.ExitOK)
	}

	app, err := cli.New("dem_compare", dryRun)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if flag.NArg() != 2 {
		app.Usagef("usage: dem_compare [options] reference.dem candidate.dem")
	}

	reference := flag.Arg(0)
	candidate := flag.Arg(1)
	app.RecordInput(reference)
	app.RecordInput(candidate)

	comparer := compare.NewComparer(app.Runner, app.Config)
	stats, diffs, err := comparer.Compare(reference, candidate)
	if err != nil {
		app.Fatalf("%v", err)
	}

	fmt.Printf("Compared %s against %s over %d common cells\n", candidate, reference, stats.Count)
	fmt.Printf("  mean    %9.3f m\n", stats.Mean)
	fmt.Printf("  median  %9.3f m\n", stats.Median)
	fmt.Printf("  stddev  %9.3f m\n", stats.StdDev)
	fmt.Printf("  rmse    %9.3f m\n", stats.RMSE)
	fmt.Printf("  min     %9.3f m\n", stats.Min)
	fmt.Printf("  max     %9.3f m\n", stats.Max)
	fmt.Printf("  5%%      %9.3f m\n", stats.Percentile5)
	fmt.Printf("  95%%     %9.3f m\n", stats.Percentile95)

	if histogram != "" {
		if err := compare.WriteHistogram(diffs, histogram); err != nil {
			app.Fatalf("%v", err)
		}
		app.RecordOutput(histogram)
		fmt.Printf("Wrote histogram %s\n", histogram)
	}
	if report != "" {
		err := compare.WriteReport(report,
			filepath.Base(reference), filepath.Base(candidate), stats, diffs)
		if err != nil {
			app.Fatalf("%v", err)
		}
		app.RecordOutput(report)
		fmt.Printf("Wrote report %s\n", report)
	}

	app.Exit(cli.ExitOK)
}
