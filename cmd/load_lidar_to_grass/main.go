// load_lidar_to_grass converts lidar files and imports them as rasters into
// a new GRASS database, which is kept for interactive work. The UNFILTEREDDEM
// raster type keeps every point including noise returns.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
	"github.com/arsf-data/dem.toolkit/internal/cli"
	"github.com/arsf-data/dem.toolkit/internal/grassdb"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/version"
)

func main() {
	var resolution float64
	var proj string
	var rastertype string
	var dryRun bool

	flag.Float64Var(&resolution, "r", 0, "grid resolution in projection units (default from config)")
	flag.StringVar(&proj, "projection", "", "projection name: UKBNG, WGS84LL or UTM<zone><N|S>")
	flag.StringVar(&rastertype, "rastertype", "DSM", "raster type: DSM, DTM, DEM, UNFILTEREDDEM or INTENSITY")
	flag.BoolVar(&dryRun, "dry-run", false, "print external commands without running them")
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print build version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("load_lidar_to_grass %s\n", version.String())
		os.Exit(cli.ExitOK)
	}

	app, err := cli.New("load_lidar_to_grass", dryRun)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if flag.NArg() == 0 {
		app.Usagef("usage: load_lidar_to_grass [options] lidarfiles...")
	}

	rt, err := lasconvert.ParseRasterType(rastertype)
	if err != nil {
		app.Fatalf("%v", err)
	}
	projection, err := app.ResolveProjection(proj)
	if err != nil {
		app.Fatalf("%v", err)
	}
	if resolution == 0 {
		resolution = app.Config.GetLidarResolution()
	}

	files := expandInputs(app, flag.Args())
	if len(files) == 0 {
		app.Fatalf("no lidar files found in the given arguments")
	}

	// The database is the product here, so it is always kept.
	db, err := grassdb.Create(app.Runner, app.Config.GetGRASSBinary(),
		app.Config.GetTempDir(), projection.Proj4, true)
	if err != nil {
		app.Fatalf("%v", err)
	}

	workDir, err := os.MkdirTemp(app.Config.GetTempDir(), "lidar-ascii-")
	if err != nil {
		app.Fatalf("%v", err)
	}
	defer os.RemoveAll(workDir)

	var boxes []bounds.Box
	for _, file := range files {
		app.RecordInput(file)
		name := grassdb.RasterName(file)
		ascii := filepath.Join(workDir, name+".txt")
		if err := app.Tools.Converter.Convert(file, ascii, rt.ReturnPolicy(), rt.DropNoise()); err != nil {
			app.Fatalf("converting %s: %v", file, err)
		}
		box, _, _, err := lasconvert.ASCIIBounds(ascii)
		if err != nil {
			app.Fatalf("reading bounds of %s: %v", file, err)
		}
		boxes = append(boxes, box)

		if err := db.SetRegion(box, resolution); err != nil {
			app.Fatalf("%v", err)
		}
		if err := db.ImportXYZ(ascii, name, rt.ZColumn()); err != nil {
			app.Fatalf("importing %s: %v", file, err)
		}
		fmt.Printf("Imported %s as %s\n", file, name)
	}

	// Leave the region covering everything that was imported.
	if err := db.SetRegion(bounds.Union(boxes), resolution); err != nil {
		app.Fatalf("%v", err)
	}

	fmt.Printf("Imported %d rasters into %s\n", len(files), db.Mapset())
	app.Exit(cli.ExitOK)
}

// expandInputs resolves directories to the lidar files beneath them.
func expandInputs(app *cli.App, args []string) []string {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			app.Fatalf("%v", err)
		}
		if info.IsDir() {
			found, err := lasconvert.FindLidarFiles(arg)
			if err != nil {
				app.Fatalf("%v", err)
			}
			files = append(files, found...)
			continue
		}
		files = append(files, arg)
	}
	return files
}
