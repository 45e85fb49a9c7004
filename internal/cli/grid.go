package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/backend"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/projection"
)

// GridArgs are the options shared by the single-file gridding commands
// (las_to_dsm, las_to_dtm, las_to_intensity).
type GridArgs struct {
	Input       string
	Out         string
	Resolution  float64
	Projection  string
	Method      string
	Hillshade   string
	KeepWorkDir bool
}

// ResolveProjection parses the named projection, falling back to the
// configured lidar default, with the OSTN02 grid from the config.
func (a *App) ResolveProjection(name string) (projection.Projection, error) {
	if name == "" {
		name = a.Config.GetLidarProjection()
	}
	p, err := projection.Parse(name, a.Config.GetOSTN02File())
	if err != nil {
		return projection.Projection{}, err
	}
	if p.GridShiftMissing {
		fmt.Println("WARNING: no OSTN02 grid configured; UKBNG transforms will be less accurate")
	}
	return p, nil
}

// GridSingle converts and grids one lidar file into a raster of the given
// type, optionally deriving a hillshade from the result.
func (a *App) GridSingle(rt lasconvert.RasterType, args GridArgs) (string, error) {
	if args.Input == "" {
		return "", demerror.NewArgumentError("no input lidar file given")
	}
	if !lasconvert.IsLAS(args.Input) && !lasconvert.IsASCII(args.Input) {
		return "", demerror.NewArgumentError("unrecognised lidar file %s", args.Input)
	}

	proj, err := a.ResolveProjection(args.Projection)
	if err != nil {
		return "", err
	}

	resolution := args.Resolution
	if resolution == 0 {
		resolution = a.Config.GetLidarResolution()
	}

	method := args.Method
	if method == "" {
		method = "GRASS"
	}
	adapter, err := backend.ForName(method, a.Tools)
	if err != nil {
		return "", err
	}

	out := args.Out
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(args.Input), filepath.Ext(args.Input))
		out = base + "_" + strings.ToLower(string(rt)) + ".dem"
	}

	a.RecordInput(args.Input)
	product, err := adapter.ProduceRaster(args.Input, backend.Options{
		Resolution:  resolution,
		Projection:  proj,
		RasterType:  rt,
		OutPath:     out,
		KeepWorkDir: args.KeepWorkDir,
	})
	if err != nil {
		return "", err
	}
	a.RecordOutput(product.Path)

	if args.Hillshade != "" {
		if err := a.Tools.GDAL.DEMProduct("hillshade", product.Path, args.Hillshade); err != nil {
			return "", err
		}
		a.RecordOutput(args.Hillshade)
	}

	return product.Path, nil
}
