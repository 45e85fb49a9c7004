package backend

import (
	"fmt"
	"path/filepath"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/grassdb"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/raster"
)

// GRASSAdapter grids with r.in.xyz, averaging per cell. The simplest
// backend: DSM takes first returns, DTM takes last returns with no ground
// classification step.
type GRASSAdapter struct {
	Tools *Tools
}

// Name returns the method name.
func (a *GRASSAdapter) Name() string { return "GRASS" }

// ProduceRaster converts the file to ASCII, grids it in a scoped GRASS
// database and exports through GDAL.
func (a *GRASSAdapter) ProduceRaster(lidarFile string, opts Options) (Product, error) {
	if opts.RasterType == lasconvert.CHM {
		return Product{}, demerror.NewArgumentError("GRASS cannot produce CHM rasters, use SPDLib")
	}

	workDir, err := a.Tools.newWorkDir()
	if err != nil {
		return Product{}, err
	}
	defer cleanupWorkDir(workDir, opts.KeepWorkDir)

	asciiFile := filepath.Join(workDir, grassdb.RasterName(lidarFile)+".txt")
	if err := a.Tools.Converter.Convert(lidarFile, asciiFile,
		opts.RasterType.ReturnPolicy(), opts.RasterType.DropNoise()); err != nil {
		return Product{}, err
	}

	box, _, _, err := lasconvert.ASCIIBounds(asciiFile)
	if err != nil {
		return Product{}, &demerror.ConversionError{File: lidarFile, Err: err}
	}

	db, err := grassdb.Create(a.Tools.Runner, a.Tools.Config.GetGRASSBinary(),
		workDir, opts.Projection.Proj4, opts.KeepWorkDir)
	if err != nil {
		return Product{}, err
	}
	defer db.Remove()

	if err := db.SetRegion(box, opts.Resolution); err != nil {
		return Product{}, err
	}

	name := grassdb.RasterName(lidarFile)
	if err := db.ImportXYZ(asciiFile, name, opts.RasterType.ZColumn()); err != nil {
		return Product{}, err
	}

	if err := db.ExportRaster(name, opts.OutPath,
		raster.DriverForPath(opts.OutPath),
		a.Tools.Config.GetOutputDataType(),
		a.Tools.Config.GetNodataValue()); err != nil {
		return Product{}, fmt.Errorf("exporting %s: %w", name, err)
	}

	return Product{
		Path:       opts.OutPath,
		Resolution: opts.Resolution,
		Projection: opts.Projection,
		RasterType: opts.RasterType,
	}, nil
}
