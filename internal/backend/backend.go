// Package backend provides the gridding adapters, one per external tool
// suite. Every adapter implements the same contract: take one LiDAR file,
// drive its tool chain, and leave a single raster at the requested path.
package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/arsf-data/dem.toolkit/internal/config"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/projection"
	"github.com/arsf-data/dem.toolkit/internal/raster"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

// Options describe one gridding request.
type Options struct {
	// Resolution is the ground sample distance in projection units.
	Resolution float64
	Projection projection.Projection
	RasterType lasconvert.RasterType
	// OutPath determines the output location and, via its extension, the
	// output format.
	OutPath string
	// KeepWorkDir retains the per-invocation working directory.
	KeepWorkDir bool
}

// Product is a raster produced by an adapter.
type Product struct {
	Path       string
	Resolution float64
	Projection projection.Projection
	RasterType lasconvert.RasterType
}

// Adapter grids one LiDAR file with one external tool suite.
type Adapter interface {
	// Name returns the adapter's method name as used on the CLI.
	Name() string

	// ProduceRaster converts and grids the file, writing opts.OutPath.
	ProduceRaster(lidarFile string, opts Options) (Product, error)
}

// Tools bundles the shared collaborators handed to adapters.
type Tools struct {
	Runner    *toolrun.Runner
	Converter *lasconvert.Converter
	GDAL      *raster.GDAL
	Config    *config.Config
}

// NewTools wires the default collaborators from a config.
func NewTools(runner *toolrun.Runner, cfg *config.Config) *Tools {
	return &Tools{
		Runner:    runner,
		Converter: lasconvert.NewConverter(runner, cfg.GetNoiseClass()),
		GDAL:      raster.NewGDAL(runner),
		Config:    cfg,
	}
}

// MethodNames lists the accepted --method values.
var MethodNames = []string{"GRASS", "LAStools", "SPDLib", "FUSION", "points2grid"}

// ForName resolves a --method value to its adapter, case-insensitively.
func ForName(name string, tools *Tools) (Adapter, error) {
	switch strings.ToUpper(name) {
	case "GRASS":
		return &GRASSAdapter{Tools: tools}, nil
	case "LASTOOLS":
		return &LAStoolsAdapter{Tools: tools}, nil
	case "SPDLIB":
		return &SPDLibAdapter{Tools: tools}, nil
	case "FUSION":
		return &FUSIONAdapter{Tools: tools}, nil
	case "POINTS2GRID":
		return &Points2GridAdapter{Tools: tools}, nil
	}
	return nil, demerror.NewArgumentError("unknown method %q (choose from %s)",
		name, strings.Join(MethodNames, ", "))
}

// newWorkDir creates a uniquely named scratch directory for one invocation.
func (t *Tools) newWorkDir() (string, error) {
	dir := filepath.Join(t.Config.GetTempDir(), "dem-work-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating working directory: %w", err)
	}
	return dir, nil
}

// cleanupWorkDir removes the scratch directory unless retention was asked.
func cleanupWorkDir(dir string, keep bool) {
	if !keep {
		os.RemoveAll(dir)
	}
}

// formatResolution renders a resolution without trailing zeros, so metre
// and degree resolutions both read naturally in tool arguments.
func formatResolution(res float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.12f", res), "0"), ".")
}

// requireTool resolves a backend tool or reports it unavailable. binDir,
// when set, anchors the lookup to a configured installation.
func (t *Tools) requireTool(backendName, tool, binDir string) (string, error) {
	if binDir != "" {
		path := filepath.Join(binDir, tool)
		if _, err := os.Stat(path); err != nil {
			return "", &demerror.BackendUnavailableError{Backend: backendName, Tool: tool, Err: err}
		}
		return path, nil
	}
	if !t.Runner.Available(tool) {
		return "", &demerror.BackendUnavailableError{Backend: backendName, Tool: tool,
			Err: fmt.Errorf("not found on PATH")}
	}
	return tool, nil
}
