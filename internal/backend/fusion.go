package backend

import (
	"path/filepath"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
)

// FUSIONAdapter grids with the FUSION/LDV tools. FUSION works in its own
// .dtm surface format; results are exported to the requested format with
// the DTM2* converters.
type FUSIONAdapter struct {
	Tools *Tools
}

// Name returns the method name.
func (a *FUSIONAdapter) Name() string { return "FUSION" }

func (a *FUSIONAdapter) binDir() string {
	if a.Tools.Config.FUSIONBinDir != nil {
		return *a.Tools.Config.FUSIONBinDir
	}
	return ""
}

// ProduceRaster drives groundfilter/GridSurfaceCreate/canopymodel.
func (a *FUSIONAdapter) ProduceRaster(lidarFile string, opts Options) (Product, error) {
	switch opts.RasterType {
	case lasconvert.DSM, lasconvert.DTM:
	default:
		return Product{}, demerror.NewArgumentError("FUSION cannot produce %s rasters", opts.RasterType)
	}

	workDir, err := a.Tools.newWorkDir()
	if err != nil {
		return Product{}, err
	}
	defer cleanupWorkDir(workDir, opts.KeepWorkDir)

	res := formatResolution(opts.Resolution)
	surface := filepath.Join(workDir, "surface.dtm")

	switch opts.RasterType {
	case lasconvert.DTM:
		groundfilter, err := a.Tools.requireTool("FUSION", "groundfilter.exe", a.binDir())
		if err != nil {
			return Product{}, err
		}
		gridsurface, err := a.Tools.requireTool("FUSION", "GridSurfaceCreate.exe", a.binDir())
		if err != nil {
			return Product{}, err
		}

		groundFile := filepath.Join(workDir, "ground.lda")
		if _, err := a.Tools.Runner.Run(groundfilter, groundFile, res, lidarFile); err != nil {
			return Product{}, err
		}
		if _, err := a.Tools.Runner.Run(gridsurface,
			surface, res, "M", "M", "0", "0", "0", "0", groundFile); err != nil {
			return Product{}, err
		}
	case lasconvert.DSM:
		canopymodel, err := a.Tools.requireTool("FUSION", "canopymodel.exe", a.binDir())
		if err != nil {
			return Product{}, err
		}
		if _, err := a.Tools.Runner.Run(canopymodel,
			surface, res, "M", "M", "0", "0", "0", "0", lidarFile); err != nil {
			return Product{}, err
		}
	}

	return a.export(surface, opts)
}

// export converts FUSION's .dtm surface to the requested output format.
func (a *FUSIONAdapter) export(surface string, opts Options) (Product, error) {
	exporter := "DTM2ENVI.exe"
	if ext := strings.ToLower(filepath.Ext(opts.OutPath)); ext == ".tif" || ext == ".tiff" {
		exporter = "DTM2TIF.exe"
	}
	tool, err := a.Tools.requireTool("FUSION", exporter, a.binDir())
	if err != nil {
		return Product{}, err
	}
	if _, err := a.Tools.Runner.Run(tool, surface, opts.OutPath); err != nil {
		return Product{}, err
	}

	return Product{
		Path:       opts.OutPath,
		Resolution: opts.Resolution,
		Projection: opts.Projection,
		RasterType: opts.RasterType,
	}, nil
}
