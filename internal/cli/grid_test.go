package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsf-data/dem.toolkit/internal/backend"
	"github.com/arsf-data/dem.toolkit/internal/config"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/lasconvert"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

func testApp(t *testing.T, builder *toolrun.MockCommandBuilder) *App {
	t.Helper()
	tmp := t.TempDir()
	cfg := &config.Config{TempDir: &tmp}
	runner := toolrun.NewMockRunner(builder)
	return &App{
		Name:   "test",
		Config: cfg,
		Runner: runner,
		Tools:  backend.NewTools(runner, cfg),
	}
}

func writePointFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "LDR110725_095133_1.txt")
	content := "431000.1 400010.0 100020.0 48.2 120 1 1 2 -3\n" +
		"431000.2 400012.0 100022.0 51.0 90 2 1 1 0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolveProjection_Default(t *testing.T) {
	app := testApp(t, &toolrun.MockCommandBuilder{})

	p, err := app.ResolveProjection("")
	require.NoError(t, err)
	assert.Equal(t, "UKBNG", p.Name)
}

func TestResolveProjection_Named(t *testing.T) {
	app := testApp(t, &toolrun.MockCommandBuilder{})

	p, err := app.ResolveProjection("UTM30N")
	require.NoError(t, err)
	assert.Equal(t, 30, p.UTMZone)
	assert.False(t, p.UTMSouth)
}

func TestGridSingle(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	app := testApp(t, builder)

	out := filepath.Join(t.TempDir(), "line1_dsm.dem")
	path, err := app.GridSingle(lasconvert.DSM, GridArgs{
		Input:      writePointFile(t),
		Out:        out,
		Resolution: 2,
		Projection: "UTM30N",
	})
	require.NoError(t, err)
	assert.Equal(t, out, path)

	lines := strings.Join(builder.CommandLines(), "\n")
	assert.Contains(t, lines, "r.in.xyz")
	assert.Contains(t, lines, "r.out.gdal")
}

func TestGridSingle_DefaultOutName(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	app := testApp(t, builder)

	path, err := app.GridSingle(lasconvert.DTM, GridArgs{
		Input:      writePointFile(t),
		Resolution: 2,
		Projection: "UTM30N",
	})
	require.NoError(t, err)
	assert.Equal(t, "LDR110725_095133_1_dtm.dem", path)
}

func TestGridSingle_Hillshade(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	app := testApp(t, builder)

	hillshade := filepath.Join(t.TempDir(), "line1_hillshade.dem")
	_, err := app.GridSingle(lasconvert.DSM, GridArgs{
		Input:      writePointFile(t),
		Out:        filepath.Join(t.TempDir(), "line1_dsm.dem"),
		Resolution: 2,
		Projection: "UTM30N",
		Hillshade:  hillshade,
	})
	require.NoError(t, err)
	assert.Contains(t, strings.Join(builder.CommandLines(), "\n"), "gdaldem hillshade")
}

func TestGridSingle_RejectsUnknownFile(t *testing.T) {
	app := testApp(t, &toolrun.MockCommandBuilder{})

	_, err := app.GridSingle(lasconvert.DSM, GridArgs{Input: "line1.tif"})
	var argErr *demerror.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestGridSingle_NoInput(t *testing.T) {
	app := testApp(t, &toolrun.MockCommandBuilder{})

	_, err := app.GridSingle(lasconvert.DSM, GridArgs{})
	var argErr *demerror.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}
