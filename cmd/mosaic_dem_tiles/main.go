// mosaic_dem_tiles merges DEM tiles that already share a projection and grid
// into a single raster.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/arsf-data/dem.toolkit/internal/cli"
	"github.com/arsf-data/dem.toolkit/internal/mosaic"
	"github.com/arsf-data/dem.toolkit/internal/version"
)

func main() {
	var out string
	var dryRun bool

	flag.StringVar(&out, "o", "", "output raster path (required)")
	flag.BoolVar(&dryRun, "dry-run", false, "print external commands without running them")
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print build version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("mosaic_dem_tiles %s\n", version.String())
		os.Exit(cli.ExitOK)
	}

	app, err := cli.New("mosaic_dem_tiles", dryRun)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if out == "" || flag.NArg() == 0 {
		app.Usagef("usage: mosaic_dem_tiles -o OUT demtiles...")
	}

	tiles := flag.Args()
	for _, tile := range tiles {
		app.RecordInput(tile)
	}

	builder := mosaic.NewBuilder(app.Runner, app.Config)
	if err := builder.MergeTiles(tiles, out); err != nil {
		app.Fatalf("%v", err)
	}
	app.RecordOutput(out)

	fmt.Printf("Created %s from %d tiles\n", out, len(tiles))
	app.Exit(cli.ExitOK)
}
