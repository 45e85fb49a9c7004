// create_dem_from_lidar grids a set of lidar files into per-line rasters,
// mosaics them, and optionally fills the gaps from a standard DEM dataset
// with its vertical datum shifted to match the lidar heights.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/arsf-data/dem.toolkit/internal/backend"
	"github.com/arsf-data/dem.toolkit/internal/bounds"
	"github.com/arsf-data/dem.toolkit/internal/cli"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/mosaic"
	"github.com/arsf-data/dem.toolkit/internal/nav"
	"github.com/arsf-data/dem.toolkit/internal/outline"
	"github.com/arsf-data/dem.toolkit/internal/projection"
	"github.com/arsf-data/dem.toolkit/internal/raster"
	"github.com/arsf-data/dem.toolkit/internal/version"
)

func main() {
	var inProjName, outProjName string
	var resolution float64
	var demmosaic string
	var aster, nextmap, srtm bool
	var separationFile string
	var lidarBounds, hyperBounds bool
	var project string
	var fillNulls bool
	var rastertype string
	var screenshot string
	var outlinePath string
	var keep bool
	var out string
	var dryRun bool

	flag.StringVar(&inProjName, "in_projection", "", "projection of the lidar files (default from config)")
	flag.StringVar(&outProjName, "out_projection", "", "projection of the output DEM (default same as input)")
	flag.Float64Var(&resolution, "resolution", 0, "grid resolution in output projection units (default from config)")
	flag.StringVar(&demmosaic, "demmosaic", "", "patch gaps from this DEM instead of a standard dataset")
	flag.BoolVar(&aster, "aster", false, "patch gaps from the ASTER mosaic")
	flag.BoolVar(&nextmap, "nextmap", false, "patch gaps from the NextMap mosaic")
	flag.BoolVar(&srtm, "srtm", false, "patch gaps from the SRTM mosaic")
	flag.StringVar(&separationFile, "separation_file", "", "vertical datum separation raster (default chosen per dataset)")
	flag.BoolVar(&lidarBounds, "lidar_bounds", false, "crop the patch DEM to the lidar extent plus buffer instead of the navigation extent")
	flag.BoolVar(&hyperBounds, "hyperspectral_bounds", false, "crop the patch DEM to the flight navigation extent (needs -p; default when -p is given)")
	flag.StringVar(&project, "p", "", "ARSF project directory holding processed navigation")
	flag.BoolVar(&fillNulls, "fill_lidar_nulls", false, "interpolate across remaining holes after patching")
	flag.StringVar(&rastertype, "rastertype", "DSM", "raster type: DSM, DTM, DEM, UNFILTEREDDEM or INTENSITY")
	flag.StringVar(&screenshot, "screenshot", "", "write a JPEG preview to this path")
	flag.StringVar(&outlinePath, "outline", "", "write a footprint shapefile to this path")
	flag.BoolVar(&keep, "keepgrassdb", false, "keep the temporary database and working files")
	flag.StringVar(&out, "o", "", "output DEM path (required)")
	flag.BoolVar(&dryRun, "dry-run", false, "print external commands without running them")
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print build version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("create_dem_from_lidar %s\n", version.String())
		os.Exit(cli.ExitOK)
	}

	app, err := cli.New("create_dem_from_lidar", dryRun)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if out == "" || flag.NArg() == 0 {
		app.Usagef("usage: create_dem_from_lidar [options] -o OUT lidarfiles...")
	}

	rt, err := lasconvert.ParseRasterType(rastertype)
	if err != nil {
		app.Fatalf("%v", err)
	}
	inProj, err := app.ResolveProjection(inProjName)
	if err != nil {
		app.Fatalf("%v", err)
	}
	outProj := inProj
	if outProjName != "" && outProjName != inProj.Name {
		if outProj, err = app.ResolveProjection(outProjName); err != nil {
			app.Fatalf("%v", err)
		}
	}
	if resolution == 0 {
		resolution = app.Config.GetLidarResolution()
	}

	files := expandInputs(app, flag.Args())
	if len(files) == 0 {
		app.Fatalf("no lidar files found in the given arguments")
	}

	workDir, err := os.MkdirTemp(app.Config.GetTempDir(), "dem-lines-")
	if err != nil {
		app.Fatalf("%v", err)
	}
	if !keep {
		defer os.RemoveAll(workDir)
	}

	adapter, err := backend.ForName("GRASS", app.Tools)
	if err != nil {
		app.Fatalf("%v", err)
	}
	gdal := app.Tools.GDAL

	var lineRasters []string
	var tiles []outline.Tile
	var lineBoxes []bounds.Box
	for i, file := range files {
		app.RecordInput(file)
		linePath := filepath.Join(workDir, fmt.Sprintf("line_%d.dem", i))
		product, err := adapter.ProduceRaster(file, backend.Options{
			Resolution:  resolution,
			Projection:  inProj,
			RasterType:  rt,
			OutPath:     linePath,
			KeepWorkDir: keep,
		})
		if err != nil {
			app.Fatalf("gridding %s: %v", file, err)
		}

		info, err := gdal.Info(product.Path)
		if err != nil {
			app.Fatalf("%v", err)
		}
		box := info.Bounds()
		tiles = append(tiles, outline.Tile{Name: file, Box: box})
		lineBoxes = append(lineBoxes, box)
		lineRasters = append(lineRasters, product.Path)
		fmt.Printf("Gridded %s (%d of %d)\n", file, i+1, len(files))
	}

	// Reprojection is an explicit step before the merge. Moving lidar from
	// UKBNG to WGS84LL also moves its heights onto the ellipsoid.
	var inputSep *mosaic.Separation
	if outProj.Name != inProj.Name {
		for i, line := range lineRasters {
			warped := filepath.Join(workDir, fmt.Sprintf("line_%d_%s.dem", i, outProj.LocationName()))
			err := gdal.Warp(line, warped, raster.WarpOptions{
				SrcProj4:   inProj.Proj4,
				DstProj4:   outProj.Proj4,
				Resolution: resolution,
			})
			if err != nil {
				app.Fatalf("reprojecting %s: %v", line, err)
			}
			lineRasters[i] = warped
		}
		if inputSep, err = mosaic.LidarSeparationFor(app.Config, inProj, outProj); err != nil {
			app.Fatalf("%v", err)
		}
		if inputSep != nil {
			fmt.Println("Applying vertical offset to lidar heights")
			app.RecordInput(inputSep.Path)
		}
	}

	var patch *mosaic.Source
	var sep *mosaic.Separation
	if demmosaic != "" || aster || nextmap || srtm {
		preset := ""
		switch {
		case aster:
			preset = "ASTER"
		case nextmap:
			preset = "NEXTMAP"
		case srtm:
			preset = "SRTM"
		}
		src, err := mosaic.ResolveSource(app.Config, preset, demmosaic)
		if err != nil {
			app.Fatalf("%v", err)
		}
		patch = &src
		app.RecordInput(src.Path)

		if separationFile != "" {
			sep = mosaic.NewSeparation(separationFile)
		} else if sep, err = mosaic.SeparationFor(app.Config, src, outProj); err != nil {
			app.Fatalf("%v", err)
		}
		if sep != nil {
			app.RecordInput(sep.Path)
		}
	}

	// The resolved extent crops the patch DEM only; a mosaic with no patch
	// covers just the lidar.
	var extent *bounds.Box
	if patch != nil {
		box, err := resolveExtent(app, lidarBounds, hyperBounds, project, lineBoxes, inProj, outProj)
		if err != nil {
			app.Fatalf("%v", err)
		}
		extent = &box
	}

	builder := mosaic.NewBuilder(app.Runner, app.Config)
	err = builder.CreatePatchedMosaic(mosaic.Options{
		Inputs:          lineRasters,
		Projection:      outProj,
		Resolution:      resolution,
		RasterType:      rt,
		Patch:           patch,
		Separation:      sep,
		InputSeparation: inputSep,
		Extent:          extent,
		FillNulls:       fillNulls,
		OutPath:         out,
		Screenshot:      screenshot,
		KeepDatabase:    keep,
	})
	if err != nil {
		app.Fatalf("%v", err)
	}
	app.RecordOutput(out)
	if screenshot != "" && rt != lasconvert.Intensity {
		app.RecordOutput(screenshot)
	}

	if outlinePath != "" {
		if err := outline.Write(outlinePath, tiles); err != nil {
			app.Fatalf("%v", err)
		}
		app.RecordOutput(outlinePath)
		fmt.Printf("Wrote outline %s\n", outlinePath)
	}

	fmt.Printf("Created %s from %d lidar files\n", out, len(files))
	app.Exit(cli.ExitOK)
}

// resolveExtent sizes the patch DEM crop. Navigation extent is the default
// whenever a project directory is supplied, so the patch covers the whole
// hyperspectral swath rather than just the lidar; -lidar_bounds forces the
// lidar union plus the configured buffer, which is also the fallback when
// navigation cannot be located.
func resolveExtent(app *cli.App, lidarBounds, hyperBounds bool, project string, lineBoxes []bounds.Box, inProj, outProj projection.Projection) (bounds.Box, error) {
	useNav := !lidarBounds && (hyperBounds || project != "")
	if useNav && project == "" {
		log.Printf("WARNING: -hyperspectral_bounds needs -p PROJECT_DIR; falling back to lidar bounds")
		useNav = false
	}
	if useNav {
		box, err := navigationBounds(app, project, outProj)
		if err == nil {
			return box, nil
		}
		log.Printf("WARNING: %v", err)
		log.Printf("WARNING: falling back to lidar bounds; the DEM will be much larger than required for hyperspectral processing")
	}

	union := bounds.Union(lineBoxes)
	if outProj.Name != inProj.Name {
		reprojected, err := bounds.Reproject(app.Runner, union, inProj.Proj4, outProj.Proj4)
		if err != nil {
			return bounds.Box{}, err
		}
		union = reprojected
	}
	buffer := app.Config.GetLidarBufferMetres()
	return union.BufferMetres(buffer, outProj.IsLatLong()), nil
}

// navigationBounds reads the processed navigation under the project directory
// and reprojects its extent from WGS84LL into the output projection.
func navigationBounds(app *cli.App, project string, outProj projection.Projection) (bounds.Box, error) {
	navDir, err := nav.ProjectNavDir(project)
	if err != nil {
		return bounds.Box{}, err
	}
	ext, err := nav.DirectoryBounds(navDir)
	if err != nil {
		return bounds.Box{}, err
	}
	if outProj.IsLatLong() {
		return ext.Box, nil
	}
	wgs84, err := projection.Parse(projection.WGS84LL, "")
	if err != nil {
		return bounds.Box{}, err
	}
	return bounds.Reproject(app.Runner, ext.Box, wgs84.Proj4, outProj.Proj4)
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
