package backend

import (
	"path/filepath"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/raster"
)

// spdInterpolation is the gridding algorithm handed to spdinterp.
const spdInterpolation = "NATURAL_NEIGHBOR"

// SPDLibAdapter grids through the SPD format: translate, classify ground
// with the progressive morphological filter plus multiscale curvature, then
// interpolate. The only backend that can produce canopy height models.
type SPDLibAdapter struct {
	Tools *Tools
}

// Name returns the method name.
func (a *SPDLibAdapter) Name() string { return "SPDLib" }

func (a *SPDLibAdapter) binDir() string {
	if a.Tools.Config.SPDLibBinDir != nil {
		return *a.Tools.Config.SPDLibBinDir
	}
	return ""
}

// ProduceRaster drives spdtranslate, the ground classifiers and spdinterp.
func (a *SPDLibAdapter) ProduceRaster(lidarFile string, opts Options) (Product, error) {
	switch opts.RasterType {
	case lasconvert.DSM, lasconvert.DTM, lasconvert.CHM:
	default:
		return Product{}, demerror.NewArgumentError("SPDLib cannot produce %s rasters", opts.RasterType)
	}

	spdtranslate, err := a.Tools.requireTool("SPDLib", "spdtranslate", a.binDir())
	if err != nil {
		return Product{}, err
	}
	spdinterp, err := a.Tools.requireTool("SPDLib", "spdinterp", a.binDir())
	if err != nil {
		return Product{}, err
	}

	workDir, err := a.Tools.newWorkDir()
	if err != nil {
		return Product{}, err
	}
	defer cleanupWorkDir(workDir, opts.KeepWorkDir)

	binSize := formatResolution(opts.Resolution)
	spdFile := filepath.Join(workDir, "points.spd")
	if _, err := a.Tools.Runner.Run(spdtranslate,
		"--if", "LASNP", "--of", "SPD",
		"-b", binSize,
		"-x", "LAST_RETURN",
		"--temppath", workDir,
		"-i", lidarFile, "-o", spdFile); err != nil {
		return Product{}, err
	}

	gridFile := spdFile
	if opts.RasterType == lasconvert.DTM || opts.RasterType == lasconvert.CHM {
		gridFile, err = a.classifyGround(spdFile, workDir, binSize)
		if err != nil {
			return Product{}, err
		}
	}

	format := raster.DriverForPath(opts.OutPath)
	interpArgs := []string{"--in", spdInterpolation, "-f", format, "-b", binSize}
	switch opts.RasterType {
	case lasconvert.DSM:
		interpArgs = append(interpArgs, "--dsm", "--topo")
	case lasconvert.DTM:
		interpArgs = append(interpArgs, "--dtm", "--topo")
	case lasconvert.CHM:
		heightFile := filepath.Join(workDir, "points_height.spd")
		spddefheight, err := a.Tools.requireTool("SPDLib", "spddefheight", a.binDir())
		if err != nil {
			return Product{}, err
		}
		if _, err := a.Tools.Runner.Run(spddefheight,
			"--interp", "-i", gridFile, "-o", heightFile); err != nil {
			return Product{}, err
		}
		gridFile = heightFile
		interpArgs = append(interpArgs, "--chm", "--height")
	}
	interpArgs = append(interpArgs, "-i", gridFile, "-o", opts.OutPath)

	if _, err := a.Tools.Runner.Run(spdinterp, interpArgs...); err != nil {
		return Product{}, err
	}

	return Product{
		Path:       opts.OutPath,
		Resolution: opts.Resolution,
		Projection: opts.Projection,
		RasterType: opts.RasterType,
	}, nil
}

// classifyGround runs the two-stage ground classification: progressive
// morphological filter first, multiscale curvature refinement second.
func (a *SPDLibAdapter) classifyGround(spdFile, workDir, binSize string) (string, error) {
	spdpmfgrd, err := a.Tools.requireTool("SPDLib", "spdpmfgrd", a.binDir())
	if err != nil {
		return "", err
	}
	spdmccgrd, err := a.Tools.requireTool("SPDLib", "spdmccgrd", a.binDir())
	if err != nil {
		return "", err
	}

	pmfFile := filepath.Join(workDir, "points_pmf.spd")
	if _, err := a.Tools.Runner.Run(spdpmfgrd,
		"-b", binSize, "--grd", "1",
		"-i", spdFile, "-o", pmfFile); err != nil {
		return "", err
	}

	mccFile := filepath.Join(workDir, "points_mcc.spd")
	if _, err := a.Tools.Runner.Run(spdmccgrd,
		"-b", binSize, "--class", "3", "--initcurvetol", "1",
		"-i", pmfFile, "-o", mccFile); err != nil {
		return "", err
	}
	return mccFile, nil
}
