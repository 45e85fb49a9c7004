package backend

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
)

// Points2GridAdapter grids mean elevations with points2grid. The tool has
// no ground classifier, so only surface models are produced.
type Points2GridAdapter struct {
	Tools *Tools
}

// Name returns the method name.
func (a *Points2GridAdapter) Name() string { return "points2grid" }

func (a *Points2GridAdapter) binary() string {
	if a.Tools.Config.Points2GridBin != nil {
		return *a.Tools.Config.Points2GridBin
	}
	return "points2grid"
}

// ProduceRaster runs points2grid and converts its arc grid output to the
// requested format.
func (a *Points2GridAdapter) ProduceRaster(lidarFile string, opts Options) (Product, error) {
	if opts.RasterType != lasconvert.DSM {
		return Product{}, demerror.NewArgumentError("points2grid can only produce DSM rasters, not %s", opts.RasterType)
	}

	bin := a.binary()
	if !a.Tools.Runner.Available(bin) {
		return Product{}, &demerror.BackendUnavailableError{Backend: "points2grid", Tool: bin,
			Err: os.ErrNotExist}
	}

	workDir, err := a.Tools.newWorkDir()
	if err != nil {
		return Product{}, err
	}
	defer cleanupWorkDir(workDir, opts.KeepWorkDir)

	// points2grid names its outputs <stem>.<statistic>.asc.
	stem := filepath.Join(workDir, "grid")
	if _, err := a.Tools.Runner.Run(bin,
		"--mean",
		"--output_file_name", stem,
		"--output_format", "arc",
		"--resolution", formatResolution(opts.Resolution),
		"-i", lidarFile); err != nil {
		return Product{}, err
	}

	meanGrid := stem + ".mean.asc"
	if strings.EqualFold(filepath.Ext(opts.OutPath), ".asc") {
		if err := copyFile(meanGrid, opts.OutPath); err != nil {
			return Product{}, err
		}
	} else {
		if err := a.Tools.GDAL.Translate(meanGrid, opts.OutPath, opts.Projection.Proj4); err != nil {
			return Product{}, err
		}
	}

	return Product{
		Path:       opts.OutPath,
		Resolution: opts.Resolution,
		Projection: opts.Projection,
		RasterType: opts.RasterType,
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
