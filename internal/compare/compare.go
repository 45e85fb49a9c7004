// Package compare computes elevation-difference statistics between two DEMs
// over their common extent and renders histogram and report outputs.
package compare

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/arsf-data/dem.toolkit/internal/config"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/raster"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

// Stats summarizes the per-pixel differences reference - candidate.
type Stats struct {
	Count        int
	Mean         float64
	Median       float64
	StdDev       float64
	RMSE         float64
	Min          float64
	Max          float64
	Percentile5  float64
	Percentile95 float64
}

// Diff samples candidate at every data cell centre of reference and returns
// the differences reference - candidate. Cells where either raster is
// nodata are skipped.
func Diff(reference, candidate raster.EsriASCIIRaster) []float64 {
	x0, y0 := referenceOrigin(reference)
	var diffs []float64
	for r := 0; r < reference.NRows; r++ {
		// Row 0 is the north edge.
		y := y0 + (float64(reference.NRows-r)-0.5)*reference.CellSize
		for c := 0; c < reference.NCols; c++ {
			ref := reference.Z(c, r)
			if ref == reference.NoDataValue {
				continue
			}
			x := x0 + (float64(c)+0.5)*reference.CellSize
			cand := candidate.Sample(x, y)
			if cand == candidate.NoDataValue {
				continue
			}
			diffs = append(diffs, ref-cand)
		}
	}
	return diffs
}

func referenceOrigin(g raster.EsriASCIIRaster) (x, y float64) {
	if g.CellCenter {
		return g.XLL - g.CellSize/2, g.YLL - g.CellSize/2
	}
	return g.XLL, g.YLL
}

// Compute summarizes a difference sample.
func Compute(diffs []float64) (Stats, error) {
	if len(diffs) == 0 {
		return Stats{}, demerror.NewArgumentError("no overlapping data cells to compare")
	}

	sorted := append([]float64(nil), diffs...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	var sumSq float64
	for _, d := range sorted {
		sumSq += d * d
	}
	n := float64(len(sorted))

	return Stats{
		Count:        len(sorted),
		Mean:         mean,
		Median:       stat.Quantile(0.5, stat.Empirical, sorted, nil),
		StdDev:       std,
		RMSE:         math.Sqrt(sumSq / n),
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Percentile5:  stat.Quantile(0.05, stat.Empirical, sorted, nil),
		Percentile95: stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}, nil
}

// Comparer shells out to GDAL to bring both DEMs onto ASCII grids, then
// diffs them in-process.
type Comparer struct {
	Runner *toolrun.Runner
	Config *config.Config
	GDAL   *raster.GDAL
}

// NewComparer wires a Comparer from shared tool state.
func NewComparer(runner *toolrun.Runner, cfg *config.Config) *Comparer {
	return &Comparer{Runner: runner, Config: cfg, GDAL: raster.NewGDAL(runner)}
}

// Compare converts both DEMs to ASCII grids and returns the difference
// sample and its statistics. The first path is the reference.
func (c *Comparer) Compare(referencePath, candidatePath string) (Stats, []float64, error) {
	workDir := filepath.Join(c.Config.GetTempDir(), "dem-compare-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return Stats{}, nil, fmt.Errorf("creating working directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	reference, err := c.toASCII(referencePath, filepath.Join(workDir, "reference.asc"))
	if err != nil {
		return Stats{}, nil, err
	}
	candidate, err := c.toASCII(candidatePath, filepath.Join(workDir, "candidate.asc"))
	if err != nil {
		return Stats{}, nil, err
	}

	diffs := Diff(reference, candidate)
	stats, err := Compute(diffs)
	if err != nil {
		return Stats{}, nil, err
	}
	return stats, diffs, nil
}

func (c *Comparer) toASCII(in, out string) (raster.EsriASCIIRaster, error) {
	if err := c.GDAL.Translate(in, out, ""); err != nil {
		return raster.EsriASCIIRaster{}, err
	}
	grid, err := raster.ReadEsriASCIIRaster(out)
	if err != nil {
		return raster.EsriASCIIRaster{}, fmt.Errorf("reading converted grid for %s: %w", in, err)
	}
	return grid, nil
}
