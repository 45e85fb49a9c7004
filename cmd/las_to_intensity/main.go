// las_to_intensity grids the intensity values of a single LAS/LAZ or ASCII
// lidar file. Only the GRASS and LAStools backends can grid intensity.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

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

	flag.StringVar(&out, "o", "", "output raster path (default <input>_intensity.dem)")
	flag.Float64Var(&resolution, "r", 0, "grid resolution in projection units (default from config)")
	flag.StringVar(&proj, "projection", "", "projection name: UKBNG, WGS84LL or UTM<zone><N|S>")
	flag.StringVar(&method, "method", "GRASS", "gridding backend: GRASS or LAStools")
	flag.BoolVar(&keep, "keepgrassdb", false, "keep the temporary working directory")
	flag.BoolVar(&dryRun, "dry-run", false, "print external commands without running them")
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print build version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("las_to_intensity %s\n", version.String())
		os.Exit(cli.ExitOK)
	}

	app, err := cli.New("las_to_intensity", dryRun)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if flag.NArg() != 1 {
		app.Usagef("usage: las_to_intensity [options] lasfile")
	}

	path, err := app.GridSingle(lasconvert.Intensity, cli.GridArgs{
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
