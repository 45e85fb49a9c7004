// las_to_dsm grids a single LAS/LAZ or ASCII lidar file into a digital
// surface model using one of the supported backends.
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
	var hillshade string
	var chm bool
	var keep bool
	var dryRun bool

	flag.StringVar(&out, "o", "", "output raster path (default <input>_dsm.dem)")
	flag.Float64Var(&resolution, "r", 0, "grid resolution in projection units (default from config)")
	flag.StringVar(&proj, "projection", "", "projection name: UKBNG, WGS84LL or UTM<zone><N|S>")
	flag.StringVar(&method, "method", "GRASS", "gridding backend: "+strings.Join(backend.MethodNames, ", "))
	flag.StringVar(&hillshade, "hillshade", "", "also derive a hillshade raster at this path")
	flag.BoolVar(&chm, "chm", false, "produce a canopy height model instead (SPDLib only)")
	flag.BoolVar(&keep, "keepgrassdb", false, "keep the temporary working directory")
	flag.BoolVar(&dryRun, "dry-run", false, "print external commands without running them")
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print build version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("las_to_dsm %s\n", version.String())
		os.Exit(cli.ExitOK)
	}

	app, err := cli.New("las_to_dsm", dryRun)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if flag.NArg() != 1 {
		app.Usagef("usage: las_to_dsm [options] lasfile")
	}

	rt := lasconvert.DSM
	if chm {
		rt = lasconvert.CHM
		if method == "GRASS" {
			method = "SPDLib"
		}
	}

	path, err := app.GridSingle(rt, cli.GridArgs{
		Input:       flag.Arg(0),
		Out:         out,
		Resolution:  resolution,
		Projection:  proj,
		Method:      method,
		Hillshade:   hillshade,
		KeepWorkDir: keep,
	})
	if err != nil {
		app.Fatalf("%v", err)
	}

	fmt.Printf("Created %s\n", path)
	app.Exit(cli.ExitOK)
}
