// create_apl_dem builds a WGS84LL DEM for the APL hyperspectral processing
// chain, sized from flight navigation data and cut from a standard DEM
// dataset with its heights shifted onto the WGS-84 ellipsoid.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
	"github.com/arsf-data/dem.toolkit/internal/cli"
	"github.com/arsf-data/dem.toolkit/internal/mosaic"
	"github.com/arsf-data/dem.toolkit/internal/nav"
	"github.com/arsf-data/dem.toolkit/internal/projection"
	"github.com/arsf-data/dem.toolkit/internal/raster"
	"github.com/arsf-data/dem.toolkit/internal/version"
)

func main() {
	var aster, nextmap, srtm bool
	var demmosaic string
	var separationFile string
	var project string
	var bilNavigation string
	var out string
	var dryRun bool

	flag.BoolVar(&aster, "aster", false, "cut the DEM from the ASTER mosaic (default)")
	flag.BoolVar(&nextmap, "nextmap", false, "cut the DEM from the NextMap mosaic")
	flag.BoolVar(&srtm, "srtm", false, "cut the DEM from the SRTM mosaic")
	flag.StringVar(&demmosaic, "demmosaic", "", "cut the DEM from this mosaic instead of a standard dataset")
	flag.StringVar(&separationFile, "separation_file", "", "vertical datum separation raster (default chosen per dataset)")
	flag.StringVar(&project, "p", "", "ARSF project directory holding processed navigation")
	flag.StringVar(&bilNavigation, "bil_navigation", "", "directory of BIL navigation files")
	flag.StringVar(&out, "o", "", "output DEM path (required)")
	flag.BoolVar(&dryRun, "dry-run", false, "print external commands without running them")
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print build version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("create_apl_dem %s\n", version.String())
		os.Exit(cli.ExitOK)
	}

	app, err := cli.New("create_apl_dem", dryRun)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if out == "" {
		app.Usagef("usage: create_apl_dem [--aster|--nextmap|--srtm|--demmosaic PATH] [-p PROJECT|--bil_navigation DIR] -o OUT")
	}

	preset := "ASTER"
	switch {
	case nextmap:
		preset = "NEXTMAP"
	case srtm:
		preset = "SRTM"
	case aster:
		preset = "ASTER"
	}
	src, err := mosaic.ResolveSource(app.Config, preset, demmosaic)
	if err != nil {
		app.Fatalf("%v", err)
	}
	app.RecordInput(src.Path)

	extent, err := navigationExtent(app, project, bilNavigation, src)
	if err != nil {
		app.Fatalf("%v", err)
	}

	wgs84, err := projection.Parse(projection.WGS84LL, "")
	if err != nil {
		app.Fatalf("%v", err)
	}
	var sep *mosaic.Separation
	if separationFile != "" {
		sep = mosaic.NewSeparation(separationFile)
	} else if sep, err = mosaic.SeparationFor(app.Config, src, wgs84); err != nil {
		app.Fatalf("%v", err)
	}
	if sep != nil {
		app.RecordInput(sep.Path)
	}

	builder := mosaic.NewBuilder(app.Runner, app.Config)
	if err := builder.CreateAPLDEM(src, sep, extent, out); err != nil {
		app.Fatalf("%v", err)
	}
	app.RecordOutput(out)

	fmt.Printf("Created %s covering %s\n", out, extent)
	app.Exit(cli.ExitOK)
}

// navigationExtent resolves the output extent from navigation data, falling
// back to the whole source dataset when navigation cannot be located.
func navigationExtent(app *cli.App, project, bilNavigation string, src mosaic.Source) (bounds.Box, error) {
	navDir := bilNavigation
	if navDir == "" && project != "" {
		dir, err := nav.ProjectNavDir(project)
		if err != nil {
			log.Printf("WARNING: %v", err)
		} else {
			navDir = dir
		}
	}

	if navDir != "" {
		ext, err := nav.DirectoryBounds(navDir)
		if err == nil {
			return ext.Box, nil
		}
		log.Printf("WARNING: %v", err)
	}

	log.Printf("WARNING: no navigation data located; the DEM will cover the whole %s mosaic and be much larger than required", src.Name)

	gdal := raster.NewGDAL(app.Runner)
	info, err := gdal.Info(src.Path)
	if err != nil {
		return bounds.Box{}, err
	}
	box := info.Bounds()
	if src.Projection == projection.WGS84LL {
		return box, nil
	}

	srcProj, err := projection.Parse(src.Projection, app.Config.GetOSTN02File())
	if err != nil {
		return bounds.Box{}, err
	}
	wgs84, err := projection.Parse(projection.WGS84LL, "")
	if err != nil {
		return bounds.Box{}, err
	}
	return bounds.ReprojectToLatLong(app.Runner, box, srcProj.Proj4, wgs84.Proj4)
}
