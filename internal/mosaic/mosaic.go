// Package mosaic merges per-line raster products into a single DEM, filling
// gaps from a patch DEM with the vertical datum shifted to match, and builds
// the standalone APL DEMs used by the hyperspectral processing chain.
package mosaic

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
	"github.com/arsf-data/dem.toolkit/internal/config"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/grassdb"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/projection"
	"github.com/arsf-data/dem.toolkit/internal/raster"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

// APLNodataValue marks missing data in APL patch DEMs. Nonzero so genuine
// sea-level heights still receive the separation offset.
const APLNodataValue = -9999

// Builder runs the GRASS and GDAL steps that assemble mosaics.
type Builder struct {
	Runner *toolrun.Runner
	Config *config.Config
	GDAL   *raster.GDAL
}

// NewBuilder wires a Builder from shared tool state.
func NewBuilder(runner *toolrun.Runner, cfg *config.Config) *Builder {
	return &Builder{Runner: runner, Config: cfg, GDAL: raster.NewGDAL(runner)}
}

// Options describe one patched mosaic build.
type Options struct {
	// Inputs are raster files sharing Projection and Resolution.
	Inputs     []string
	Projection projection.Projection
	Resolution float64
	RasterType lasconvert.RasterType

	// Patch fills gaps between and around the inputs; nil leaves them nodata.
	Patch      *Source
	Separation *Separation

	// InputSeparation shifts the input rasters' heights onto the output
	// vertical datum before merging.
	InputSeparation *Separation

	// Extent crops the output; nil uses the union of the input bounds.
	Extent *bounds.Box

	// FillNulls interpolates across remaining holes after patching.
	FillNulls bool

	OutPath      string
	Screenshot   string
	KeepDatabase bool
}

func (b *Builder) workDir() (string, error) {
	dir := filepath.Join(b.Config.GetTempDir(), "dem-mosaic-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating working directory: %w", err)
	}
	return dir, nil
}

// checkProjections verifies that every input carries the same projection as
// the first, using gdalinfo. Inputs with no projection metadata are accepted.
func (b *Builder) checkProjections(inputs []string) ([]raster.Dataset, error) {
	infos := make([]raster.Dataset, len(inputs))
	want := ""
	for i, path := range inputs {
		info, err := b.GDAL.Info(path)
		if err != nil {
			return nil, err
		}
		infos[i] = info
		if info.Proj4 == "" {
			continue
		}
		if want == "" {
			want = info.Proj4
		} else if info.Proj4 != want {
			return nil, &demerror.ProjectionMismatchError{
				Want: want,
				Got:  info.Proj4,
				File: path,
			}
		}
	}
	return infos, nil
}

// subsetPatch crops the patch DEM to the region, reprojecting when its
// horizontal projection differs from the output.
func (b *Builder) subsetPatch(patch *Source, out projection.Projection, region bounds.Box, workDir string) (string, error) {
	subset := filepath.Join(workDir, "patch_subset.dem")
	if patch.Projection == out.Name {
		if err := b.GDAL.SubsetSameProjection(patch.Path, subset, region); err != nil {
			return "", err
		}
		return subset, nil
	}

	srcProj, err := projection.Parse(patch.Projection, b.Config.GetOSTN02File())
	if err != nil {
		return "", err
	}
	nodata := float64(APLNodataValue)
	err = b.GDAL.Warp(patch.Path, subset, raster.WarpOptions{
		SrcProj4: srcProj.Proj4,
		DstProj4: out.Proj4,
		Box:      &region,
		NoData:   &nodata,
	})
	if err != nil {
		return "", err
	}
	return subset, nil
}

// importSeparation loads the separation raster into the database under the
// given name.
func importSeparation(db *grassdb.Database, sep *Separation, name string) error {
	if sep.ASCII {
		return db.ImportASCIIGrid(sep.Path, name)
	}
	return db.ImportExternal(sep.Path, name, true)
}

// CreatePatchedMosaic merges the inputs and the optional patch DEM into one
// raster at OutPath. A single input with no patch, extent or fill step is
// copied through unchanged.
func (b *Builder) CreatePatchedMosaic(opts Options) error {
	if len(opts.Inputs) == 0 {
		return demerror.NewArgumentError("no input rasters to mosaic")
	}

	infos, err := b.checkProjections(opts.Inputs)
	if err != nil {
		return err
	}

	nodata := b.Config.GetNodataValue()

	if len(opts.Inputs) == 1 && opts.Patch == nil && opts.Extent == nil &&
		opts.InputSeparation == nil && !opts.FillNulls {
		if err := b.GDAL.Translate(opts.Inputs[0], opts.OutPath, ""); err != nil {
			return err
		}
		return b.finishOutput(opts, nodata)
	}

	workDir, err := b.workDir()
	if err != nil {
		return err
	}
	defer func() {
		if !opts.KeepDatabase {
			os.RemoveAll(workDir)
		}
	}()

	db, err := grassdb.Create(b.Runner, b.Config.GetGRASSBinary(), workDir,
		opts.Projection.Proj4, opts.KeepDatabase)
	if err != nil {
		return err
	}
	defer db.Remove()

	var names []string
	var boxes []bounds.Box
	for i, path := range opts.Inputs {
		name := fmt.Sprintf("%s_%d", grassdb.RasterName(path), i)
		if err := db.ImportExternal(path, name, false); err != nil {
			return err
		}
		names = append(names, name)
		boxes = append(boxes, infos[i].Bounds())
	}

	region := bounds.Union(boxes)
	if opts.Extent != nil {
		region = *opts.Extent
	}
	if err := db.SetRegion(region, opts.Resolution); err != nil {
		return err
	}

	if opts.InputSeparation != nil {
		if err := importSeparation(db, opts.InputSeparation, "lidar_separation"); err != nil {
			return err
		}
		for i, name := range names {
			shifted := name + "_shifted"
			if err := db.ApplyOffset(name, "lidar_separation", shifted,
				nodata, opts.InputSeparation.Negate); err != nil {
				return err
			}
			names[i] = shifted
		}
	}

	if opts.Patch != nil {
		subset, err := b.subsetPatch(opts.Patch, opts.Projection, region, workDir)
		if err != nil {
			return err
		}
		patchName := "patch_dem"
		if err := db.ImportExternal(subset, patchName, true); err != nil {
			return err
		}
		if opts.Separation != nil {
			if err := importSeparation(db, opts.Separation, "separation"); err != nil {
				return err
			}
			if err := db.ApplyOffset(patchName, "separation", "patch_shifted",
				APLNodataValue, opts.Separation.Negate); err != nil {
				return err
			}
			patchName = "patch_shifted"
		}
		if err := db.ReplaceNodata(patchName, "patch_final", APLNodataValue, nodata); err != nil {
			return err
		}
		// Inputs first so lidar wins wherever it has data.
		names = append(names, "patch_final")
	}

	merged := "mosaic"
	if err := db.Patch(names, merged); err != nil {
		return err
	}

	if opts.FillNulls {
		if err := db.FillNulls(merged, "mosaic_filled"); err != nil {
			return err
		}
		merged = "mosaic_filled"
	}

	if err := db.ExportRaster(merged, opts.OutPath,
		raster.DriverForPath(opts.OutPath),
		b.Config.GetOutputDataType(), nodata); err != nil {
		return err
	}

	if opts.Screenshot != "" {
		if err := b.screenshotRaster(db, merged, opts.Screenshot, opts.RasterType); err != nil {
			return err
		}
	}

	return b.finishOutput(opts, nodata)
}

// finishOutput fixes up ENVI header metadata on the written mosaic.
func (b *Builder) finishOutput(opts Options, nodata float64) error {
	if raster.DriverForPath(opts.OutPath) != "ENVI" {
		return nil
	}
	if err := raster.SetHeaderNoData(opts.OutPath, nodata); err != nil {
		return err
	}
	source := "LiDAR"
	if opts.Patch != nil {
		source = "LiDAR/" + opts.Patch.Name
	}
	return raster.AddHeaderMetadata(opts.OutPath, source, string(opts.RasterType))
}

// screenshotRaster renders a JPEG preview. Elevation rasters get a shaded
// relief pass first; intensity rasters skip screenshots with a warning
// because the equalized stretch of raw intensity is unreadable.
func (b *Builder) screenshotRaster(db *grassdb.Database, name, outPath string, rt lasconvert.RasterType) error {
	if rt == lasconvert.Intensity {
		log.Printf("WARNING: screenshots are not produced for intensity rasters, skipping %s", outPath)
		return nil
	}
	shaded := name
	if rt.IsElevation() {
		shaded = name + "_shaded"
		if err := db.ShadedRelief(name, shaded); err != nil {
			return err
		}
	}
	scaled := name + "_scaled"
	if err := db.RescaleEq(shaded, scaled); err != nil {
		return err
	}
	return db.ExportRaster(scaled, outPath, "JPEG", "Byte", 0)
}

// ScreenshotFile renders a JPEG preview of a standalone raster file.
func (b *Builder) ScreenshotFile(in, outPath string, rt lasconvert.RasterType) error {
	info, err := b.GDAL.Info(in)
	if err != nil {
		return err
	}
	proj4 := info.Proj4
	if proj4 == "" {
		proj4 = "+proj=longlat +datum=WGS84 +no_defs"
	}

	workDir, err := b.workDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	db, err := grassdb.Create(b.Runner, b.Config.GetGRASSBinary(), workDir, proj4, false)
	if err != nil {
		return err
	}
	defer db.Remove()

	name := grassdb.RasterName(in)
	if err := db.ImportExternal(in, name, false); err != nil {
		return err
	}
	if err := db.SetRegion(info.Bounds(), math.Abs(info.GeoTransform[1])); err != nil {
		return err
	}
	return b.screenshotRaster(db, name, outPath, rt)
}

// CreateAPLDEM subsets the source dataset to the navigation extent, shifts
// the heights onto the WGS-84 ellipsoid and writes an ENVI DEM in WGS84LL
// for the APL processing chain.
func (b *Builder) CreateAPLDEM(src Source, sep *Separation, extent bounds.Box, outPath string) error {
	outProj, err := projection.Parse(projection.WGS84LL, "")
	if err != nil {
		return err
	}

	workDir, err := b.workDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	subset, err := b.subsetPatch(&src, outProj, extent, workDir)
	if err != nil {
		return err
	}

	db, err := grassdb.Create(b.Runner, b.Config.GetGRASSBinary(), workDir, outProj.Proj4, false)
	if err != nil {
		return err
	}
	defer db.Remove()

	name := "apl_dem"
	if err := db.ImportExternal(subset, name, false); err != nil {
		return err
	}
	if err := db.SetRegion(extent, src.Resolution); err != nil {
		return err
	}

	if sep != nil {
		if err := importSeparation(db, sep, "separation"); err != nil {
			return err
		}
		if err := db.ApplyOffset(name, "separation", "apl_shifted",
			APLNodataValue, sep.Negate); err != nil {
			return err
		}
		name = "apl_shifted"
	}

	if err := db.ExportRaster(name, outPath, "ENVI", "Float32", APLNodataValue); err != nil {
		return err
	}
	if err := raster.SetHeaderNoData(outPath, APLNodataValue); err != nil {
		return err
	}
	return raster.AddHeaderMetadata(outPath, src.Name, "APL DEM")
}

// MergeTiles mosaics DEM tiles that already share a projection and grid,
// through a VRT. No datum shifting or gap filling happens here.
func (b *Builder) MergeTiles(inputs []string, outPath string) error {
	if len(inputs) == 0 {
		return demerror.NewArgumentError("no DEM tiles to mosaic")
	}
	if _, err := b.checkProjections(inputs); err != nil {
		return err
	}

	workDir, err := b.workDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	vrt := filepath.Join(workDir, "tiles.vrt")
	if err := b.GDAL.BuildVRT(vrt, inputs...); err != nil {
		return err
	}
	if err := b.GDAL.Translate(vrt, outPath, ""); err != nil {
		return err
	}
	if raster.DriverForPath(outPath) == "ENVI" {
		return raster.SetHeaderNoData(outPath, b.Config.GetNodataValue())
	}
	return nil
}
