package compare

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/raster"
)

// flatGrid builds a 4x4 corner-registered grid filled with the value.
func flatGrid(value, nodata float64) raster.EsriASCIIRaster {
	g := raster.EsriASCIIRaster{
		NCols: 4, NRows: 4,
		XLL: 100, YLL: 200,
		CellSize:    2,
		NoDataValue: nodata,
	}
	for r := 0; r < g.NRows; r++ {
		row := make([]float64, g.NCols)
		for c := range row {
			row[c] = value
		}
		g.Data = append(g.Data, row)
	}
	return g
}

func TestDiff_IdenticalGrids(t *testing.T) {
	a := flatGrid(50, -9999)
	b := flatGrid(50, -9999)

	diffs := Diff(a, b)
	require.Len(t, diffs, 16)
	for _, d := range diffs {
		assert.Equal(t, 0.0, d)
	}
}

func TestDiff_ConstantOffset(t *testing.T) {
	a := flatGrid(52.5, -9999)
	b := flatGrid(50, -9999)

	diffs := Diff(a, b)
	require.Len(t, diffs, 16)
	for _, d := range diffs {
		assert.InDelta(t, 2.5, d, 1e-9)
	}
}

func TestDiff_SkipsNodata(t *testing.T) {
	a := flatGrid(50, -9999)
	b := flatGrid(50, -9999)
	a.Data[0][0] = -9999
	b.Data[3][3] = -9999

	diffs := Diff(a, b)
	// One reference nodata cell, and the candidate nodata cell poisons the
	// interpolation around it.
	assert.Less(t, len(diffs), 16)
	assert.NotEmpty(t, diffs)
}

func TestDiff_DisjointGrids(t *testing.T) {
	a := flatGrid(50, -9999)
	b := flatGrid(50, -9999)
	b.XLL = 1000

	assert.Empty(t, Diff(a, b))
}

func TestCompute(t *testing.T) {
	diffs := []float64{-1, 0, 0, 0, 1}

	s, err := Compute(diffs)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 0.0, s.Mean, 1e-12)
	assert.InDelta(t, 0.0, s.Median, 1e-12)
	assert.Equal(t, -1.0, s.Min)
	assert.Equal(t, 1.0, s.Max)
	assert.InDelta(t, 0.6324555, s.RMSE, 1e-6)
}

func TestCompute_Empty(t *testing.T) {
	_, err := Compute(nil)
	var argErr *demerror.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestWriteHistogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.png")
	diffs := []float64{-0.5, -0.2, 0, 0, 0.1, 0.2, 0.3, 1.2}

	require.NoError(t, WriteHistogram(diffs, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	diffs := []float64{-0.5, -0.2, 0, 0, 0.1, 0.2, 0.3, 1.2}
	s, err := Compute(diffs)
	require.NoError(t, err)

	require.NoError(t, WriteReport(path, "lidar.dem", "aster.dem", s, diffs))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lidar.dem vs aster.dem")
	assert.Contains(t, string(body), "echarts")
}

func TestBinDiffs(t *testing.T) {
	labels, counts := binDiffs([]float64{0, 1, 2, 3}, 4)
	require.Len(t, labels, 4)
	require.Len(t, counts, 4)
	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 4, total)

	// Constant input collapses to one bin.
	labels, counts = binDiffs([]float64{5, 5, 5}, 4)
	assert.Equal(t, []string{"5.000"}, labels)
	assert.Equal(t, []int{3}, counts)
}
