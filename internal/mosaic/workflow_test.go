package mosaic

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsf-data/dem.toolkit/internal/backend"
	"github.com/arsf-data/dem.toolkit/internal/config"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/projection"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

const utm33Info = `Driver: ENVI/ENVI .hdr Labelled
Size is 1000, 800
PROJ.4 string is:
'+proj=utm +zone=33 +ellps=WGS84 +datum=WGS84 +units=m +no_defs'
Origin = (431000.000000000000000,4002000.000000000000000)
Pixel Size = (2.000000000000000,-2.000000000000000)
Band 1 Block=1000x1 Type=Float32, ColorInterp=Undefined
  NoData Value=0
`

// writePointTile writes a two-point ASCII tile. The second row is class 7
// noise, so filtered output must keep only the first.
func writePointTile(t *testing.T, dir, name string) string {
	t.Helper()
	content := "123456.1 431000.5 4001000.5 120.2 48 1 1 2 -3\n" +
		"123456.2 431002.5 4001002.5 340.0 12 7 1 1 0\n"
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// Grids two flight lines at the defaults and mosaics the results, checking
// the command chain end to end.
func TestTwoLineWorkflow(t *testing.T) {
	utm33, err := projection.Parse("UTM33N", "")
	require.NoError(t, err)

	tmp := t.TempDir()
	cfg := &config.Config{TempDir: &tmp}

	gridBuilder := &toolrun.MockCommandBuilder{}
	tools := backend.NewTools(toolrun.NewMockRunner(gridBuilder), cfg)
	adapter, err := backend.ForName("GRASS", tools)
	require.NoError(t, err)

	var products []string
	for _, name := range []string{"line1.txt", "line2.txt"} {
		out := filepath.Join(tmp, strings.TrimSuffix(name, ".txt")+"_dsm.dem")
		product, err := adapter.ProduceRaster(writePointTile(t, tmp, name), backend.Options{
			Resolution: 2,
			Projection: utm33,
			RasterType: lasconvert.DSM,
			OutPath:    out,
		})
		require.NoError(t, err)
		products = append(products, product.Path)
	}

	gridLines := strings.Join(gridBuilder.CommandLines(), "\n")
	assert.Equal(t, 2, strings.Count(gridLines, "r.in.xyz"), "one import per line")
	assert.Contains(t, gridLines, "z=4")
	assert.Contains(t, gridLines, "method=mean")

	mosaicBuilder := &toolrun.MockCommandBuilder{
		Outputs: [][]byte{[]byte(utm33Info), []byte(utm33Info)},
	}
	b := NewBuilder(toolrun.NewMockRunner(mosaicBuilder), cfg)
	err = b.CreatePatchedMosaic(Options{
		Inputs:     products,
		Projection: utm33,
		Resolution: 2,
		RasterType: lasconvert.DSM,
		OutPath:    filepath.Join(tmp, "mosaic.tif"),
	})
	require.NoError(t, err)

	mosaicLines := strings.Join(mosaicBuilder.CommandLines(), "\n")
	assert.Contains(t, mosaicLines, "r.patch")
	assert.Contains(t, mosaicLines, "input=line1_dsm_0,line2_dsm_1")
	assert.Contains(t, mosaicLines, "r.out.gdal")
	assert.Contains(t, mosaicLines, "res=2")
}
