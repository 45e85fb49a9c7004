// las_to_dtm grids a single LAS/LAZ or ASCII lidar file into a digital
// terrain model. Backends other than GRASS run their own ground
// classification first.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/backend"
	"github.com/arsf-data/dem.toolkit/internal/cli"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/version"
)

func main() {
	var out string
	var resolution float64
	var proj string
	var method string
	var keep bool
	var dryRun bool

	flag.StringVar(&out, "o", "", "output raster path (default <input>_dtm.dem)")
	flag.Float64Var(&resolution, "r", 0, "grid resolution in projection units (default from config)")
	flag.StringVar(&proj, "projection", "", "projection name: UKBNG, WGS84LL or UTM<zone><N|S>")
	flag.StringVar(&method, "method", "GRASS", "gridding backend: "+strings.Join(backend.MethodNames, ", "))
	flag.BoolVar(&keep, "keepgrassdb", false, "keep the temporary working directory")
	flag.BoolVar(&dryRun, "dry-run", false, "print external commands without running them")
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print build version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("las_to_dtm %s\n", version.String())
		os.Exit(cli.ExitOK)
	}

	app, err := cli.New("las_to_dtm", dryRun)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if flag.NArg() != 1 {
		app.Usagef("usage: las_to_dtm [options] lasfile")
	}

	path, err := app.GridSingle(lasconvert.DTM, cli.GridArgs{
		Input:       flag.Arg(0),
		Out:         out,
		Resolution:  resolution,
		Projection:  proj,
		Method:      method,
		KeepWorkDir: keep,
	})
	if err != nil {
		app.Fatalf("%v", err)
	}

	fmt.Printf("Created %s\n", path)
	app.Exit(cli.ExitOK)
}
