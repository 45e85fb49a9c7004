package backend

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsf-data/dem.toolkit/internal/config"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/projection"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

func ptrString(v string) *string { return &v }
func ptrBool(v bool) *bool       { return &v }

func testTools(t *testing.T, builder *toolrun.MockCommandBuilder) *Tools {
	t.Helper()
	tmp := t.TempDir()
	cfg := &config.Config{TempDir: &tmp}
	return NewTools(toolrun.NewMockRunner(builder), cfg)
}

func utm30n(t *testing.T) projection.Projection {
	t.Helper()
	p, err := projection.Parse("UTM30N", "")
	require.NoError(t, err)
	return p
}

func TestForName(t *testing.T) {
	tools := testTools(t, &toolrun.MockCommandBuilder{})

	for name, want := range map[string]string{
		"GRASS":       "GRASS",
		"grass":       "GRASS",
		"LAStools":    "LAStools",
		"SPDLib":      "SPDLib",
		"fusion":      "FUSION",
		"points2grid": "points2grid",
	} {
		a, err := ForName(name, tools)
		require.NoError(t, err, name)
		assert.Equal(t, want, a.Name())
	}

	_, err := ForName("pdal", tools)
	var argErr *demerror.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

// writeASCIITile writes a small point file so conversion runs in-process.
func writeASCIITile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "line1.txt")
	content := "431000.1 400010.0 100020.0 48.2 120 1 1 2 -3\n" +
		"431000.2 400012.0 100022.0 51.0 90 2 1 1 0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGRASS_ProduceRaster(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	tools := testTools(t, builder)
	a := &GRASSAdapter{Tools: tools}

	out := filepath.Join(t.TempDir(), "line1.dem")
	product, err := a.ProduceRaster(writeASCIITile(t), Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.DSM,
		OutPath:    out,
	})
	require.NoError(t, err)
	assert.Equal(t, out, product.Path)
	assert.Equal(t, lasconvert.DSM, product.RasterType)

	lines := builder.CommandLines()
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "g.region")
	assert.Contains(t, joined, "r.in.xyz")
	assert.Contains(t, joined, "z=4")
	assert.Contains(t, joined, "method=mean")
	assert.Contains(t, joined, "r.out.gdal")
	assert.Contains(t, joined, "format=ENVI")
}

func TestGRASS_IntensityColumn(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &GRASSAdapter{Tools: testTools(t, builder)}

	out := filepath.Join(t.TempDir(), "line1_int.dem")
	_, err := a.ProduceRaster(writeASCIITile(t), Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.Intensity,
		OutPath:    out,
	})
	require.NoError(t, err)
	assert.Contains(t, strings.Join(builder.CommandLines(), "\n"), "z=5")
}

func TestGRASS_CHMRejected(t *testing.T) {
	a := &GRASSAdapter{Tools: testTools(t, &toolrun.MockCommandBuilder{})}
	_, err := a.ProduceRaster("line1.txt", Options{RasterType: lasconvert.CHM})
	var argErr *demerror.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestLAStools_DSM(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &LAStoolsAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.DSM,
		OutPath:    "dsm.tif",
	})
	require.NoError(t, err)

	require.Len(t, builder.Calls, 1)
	line := builder.CommandLines()[0]
	assert.Contains(t, line, "las2dem")
	assert.Contains(t, line, "-step 2")
	assert.Contains(t, line, "-utm 30N")
	assert.Contains(t, line, "-i line1.LAS -o dsm.tif")
	assert.NotContains(t, line, "-keep_class")
}

func TestLAStools_DTMChain(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &LAStoolsAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.DTM,
		OutPath:    "dtm.tif",
	})
	require.NoError(t, err)

	require.Len(t, builder.Calls, 2)
	assert.Contains(t, builder.CommandLines()[0], "lasground -i line1.LAS")
	line := builder.CommandLines()[1]
	assert.Contains(t, line, "las2dem")
	assert.Contains(t, line, "-keep_class 2")
	assert.Contains(t, line, "ground.las")
}

func TestLAStools_Intensity(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &LAStoolsAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 1,
		Projection: utm30n(t),
		RasterType: lasconvert.Intensity,
		OutPath:    "int.tif",
	})
	require.NoError(t, err)
	assert.Contains(t, builder.CommandLines()[0], "-intensity")
}

func TestLAStools_NonUTMProjection(t *testing.T) {
	a := &LAStoolsAdapter{Tools: testTools(t, &toolrun.MockCommandBuilder{})}
	ukbng, err := projection.Parse("UKBNG", "")
	require.NoError(t, err)

	_, err = a.ProduceRaster("line1.LAS", Options{
		Resolution: 2, Projection: ukbng, RasterType: lasconvert.DSM, OutPath: "o.tif",
	})
	var argErr *demerror.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestLAStools_MissingTool(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{MissingTools: []string{"las2dem"}}
	a := &LAStoolsAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2, Projection: utm30n(t), RasterType: lasconvert.DSM, OutPath: "o.tif",
	})
	var backendErr *demerror.BackendUnavailableError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, "LAStools", backendErr.Backend)
}

func TestLAStools_ConfiguredBinDir(t *testing.T) {
	dir := t.TempDir()
	for _, tool := range []string{"las2dem"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, tool), []byte("#!/bin/sh\n"), 0755))
	}

	builder := &toolrun.MockCommandBuilder{}
	tools := testTools(t, builder)
	tools.Config.LAStoolsBinDir = ptrString(dir)
	tools.Config.LAStoolsLicense = ptrBool(true)
	a := &LAStoolsAdapter{Tools: tools}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2, Projection: utm30n(t), RasterType: lasconvert.DSM, OutPath: "o.tif",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "las2dem"), builder.Calls[0].Name)
}

func TestSPDLib_DSM(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &SPDLibAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.DSM,
		OutPath:    "dsm.dem",
	})
	require.NoError(t, err)

	require.Len(t, builder.Calls, 2)
	translate := builder.CommandLines()[0]
	assert.Contains(t, translate, "spdtranslate --if LASNP --of SPD")
	assert.Contains(t, translate, "-b 2")
	assert.Contains(t, translate, "-x LAST_RETURN")
	assert.Contains(t, translate, "--temppath")

	interp := builder.CommandLines()[1]
	assert.Contains(t, interp, "spdinterp --in NATURAL_NEIGHBOR")
	assert.Contains(t, interp, "--dsm --topo")
	assert.Contains(t, interp, "-f ENVI")
}

func TestSPDLib_DTMClassifiesGround(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &SPDLibAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.DTM,
		OutPath:    "dtm.dem",
	})
	require.NoError(t, err)

	require.Len(t, builder.Calls, 4)
	assert.Contains(t, builder.CommandLines()[1], "spdpmfgrd")
	assert.Contains(t, builder.CommandLines()[1], "--grd 1")
	assert.Contains(t, builder.CommandLines()[2], "spdmccgrd")
	assert.Contains(t, builder.CommandLines()[2], "--class 3 --initcurvetol 1")
	assert.Contains(t, builder.CommandLines()[3], "--dtm --topo")
}

func TestSPDLib_CHM(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &SPDLibAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.CHM,
		OutPath:    "chm.dem",
	})
	require.NoError(t, err)

	lines := strings.Join(builder.CommandLines(), "\n")
	assert.Contains(t, lines, "spddefheight --interp")
	assert.Contains(t, lines, "--chm --height")
}

func TestSPDLib_IntensityRejected(t *testing.T) {
	a := &SPDLibAdapter{Tools: testTools(t, &toolrun.MockCommandBuilder{})}
	_, err := a.ProduceRaster("line1.LAS", Options{RasterType: lasconvert.Intensity})
	var argErr *demerror.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestFUSION_DTMChain(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &FUSIONAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.DTM,
		OutPath:    "dtm.tif",
	})
	require.NoError(t, err)

	require.Len(t, builder.Calls, 3)
	assert.Contains(t, builder.CommandLines()[0], "groundfilter.exe")
	assert.Contains(t, builder.CommandLines()[1], "GridSurfaceCreate.exe")
	assert.Contains(t, builder.CommandLines()[1], "M M 0 0 0 0")
	assert.Contains(t, builder.CommandLines()[2], "DTM2TIF.exe")
}

func TestFUSION_DSMExportsENVI(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &FUSIONAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.DSM,
		OutPath:    "dsm.dem",
	})
	require.NoError(t, err)

	require.Len(t, builder.Calls, 2)
	assert.Contains(t, builder.CommandLines()[0], "canopymodel.exe")
	assert.Contains(t, builder.CommandLines()[1], "DTM2ENVI.exe")
}

func TestPoints2Grid_DSM(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	a := &Points2GridAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{
		Resolution: 2,
		Projection: utm30n(t),
		RasterType: lasconvert.DSM,
		OutPath:    "dsm.dem",
	})
	require.NoError(t, err)

	require.Len(t, builder.Calls, 2)
	p2g := builder.CommandLines()[0]
	assert.Contains(t, p2g, "points2grid --mean")
	assert.Contains(t, p2g, "--output_format arc")
	assert.Contains(t, p2g, "--resolution 2")

	translate := builder.CommandLines()[1]
	assert.Contains(t, translate, "gdal_translate")
	assert.Contains(t, translate, ".mean.asc")
}

func TestPoints2Grid_DTMRejected(t *testing.T) {
	a := &Points2GridAdapter{Tools: testTools(t, &toolrun.MockCommandBuilder{})}
	_, err := a.ProduceRaster("line1.LAS", Options{RasterType: lasconvert.DTM})
	var argErr *demerror.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestPoints2Grid_MissingBinary(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{MissingTools: []string{"points2grid"}}
	a := &Points2GridAdapter{Tools: testTools(t, builder)}

	_, err := a.ProduceRaster("line1.LAS", Options{RasterType: lasconvert.DSM})
	var backendErr *demerror.BackendUnavailableError
	assert.True(t, errors.As(err, &backendErr))
}

func TestWorkDirRemoved(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	tools := testTools(t, builder)
	a := &GRASSAdapter{Tools: tools}

	out := filepath.Join(t.TempDir(), "line1.dem")
	_, err := a.ProduceRaster(writeASCIITile(t), Options{
		Resolution: 2, Projection: utm30n(t), RasterType: lasconvert.DSM, OutPath: out,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(tools.Config.GetTempDir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "dem-work-"),
			"working directory %s should have been removed", e.Name())
	}
}
