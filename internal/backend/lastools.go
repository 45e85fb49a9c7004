package backend

import (
	"log"
	"path/filepath"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
)

// LAStoolsAdapter grids with las2dem, classifying ground with lasground for
// DTMs. Without a license the tools still run but stamp visible artifacts
// into the output; that is an accepted degraded mode, reported as a warning.
type LAStoolsAdapter struct {
	Tools *Tools
}

// Name returns the method name.
func (a *LAStoolsAdapter) Name() string { return "LAStools" }

func (a *LAStoolsAdapter) binDir() string {
	if a.Tools.Config.LAStoolsBinDir != nil {
		return *a.Tools.Config.LAStoolsBinDir
	}
	return ""
}

// ProduceRaster drives lasground/las2dem.
func (a *LAStoolsAdapter) ProduceRaster(lidarFile string, opts Options) (Product, error) {
	switch opts.RasterType {
	case lasconvert.DSM, lasconvert.DTM, lasconvert.Intensity:
	default:
		return Product{}, demerror.NewArgumentError("LAStools cannot produce %s rasters", opts.RasterType)
	}

	projFlags, err := opts.Projection.LAStoolsFlags()
	if err != nil {
		return Product{}, err
	}

	las2dem, err := a.Tools.requireTool("LAStools", "las2dem", a.binDir())
	if err != nil {
		return Product{}, err
	}

	if !a.Tools.Config.GetLAStoolsLicensed() {
		log.Printf("WARNING: no LAStools license configured; outputs will contain the unlicensed diagonal artifacts")
	}

	workDir, err := a.Tools.newWorkDir()
	if err != nil {
		return Product{}, err
	}
	defer cleanupWorkDir(workDir, opts.KeepWorkDir)

	gridInput := lidarFile
	args := []string{"-step", formatResolution(opts.Resolution)}
	args = append(args, projFlags...)

	switch opts.RasterType {
	case lasconvert.DTM:
		lasground, err := a.Tools.requireTool("LAStools", "lasground", a.binDir())
		if err != nil {
			return Product{}, err
		}
		groundFile := filepath.Join(workDir, "ground.las")
		if _, err := a.Tools.Runner.Run(lasground, "-i", lidarFile, "-o", groundFile); err != nil {
			return Product{}, err
		}
		gridInput = groundFile
		args = append(args, "-keep_class", "2")
	case lasconvert.Intensity:
		args = append(args, "-intensity")
	}

	args = append(args, "-i", gridInput, "-o", opts.OutPath)
	if _, err := a.Tools.Runner.Run(las2dem, args...); err != nil {
		return Product{}, err
	}

	return Product{
		Path:       opts.OutPath,
		Resolution: opts.Resolution,
		Projection: opts.Projection,
		RasterType: opts.RasterType,
	}, nil
}
