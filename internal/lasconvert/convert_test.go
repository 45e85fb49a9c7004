package lasconvert

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

// Rows follow time x y z intensity class returnnum numreturns scanangle.
const asciiPoints = `431000.1 400010.0 100020.0 48.2 120 1 1 2 -3
431000.2 400012.0 100022.0 51.0 90 7 1 1 0
431000.3 400014.0 100024.0 47.8 110 2 2 2 1
431000.4 400016.0 100026.0 49.5 100 1 1 1 2
`

func writePoints(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "line1.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConvert_LAS_ArgChain(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	c := NewConverter(toolrun.NewMockRunner(builder), DefaultNoiseClass)

	require.NoError(t, c.Convert("line1.LAS", "line1.txt", FirstOnly, true))

	line := builder.CommandLines()[0]
	assert.Contains(t, line, "las2txt -parse txyzicrna -sep space")
	assert.Contains(t, line, "-drop_class 7")
	assert.Contains(t, line, "-first_only")
	assert.Contains(t, line, "-i line1.LAS -o line1.txt")
}

func TestConvert_LAS_LastOnlyNoDrop(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	c := NewConverter(toolrun.NewMockRunner(builder), DefaultNoiseClass)

	require.NoError(t, c.Convert("line1.laz", "line1.txt", LastOnly, false))

	line := builder.CommandLines()[0]
	assert.Contains(t, line, "-last_only")
	assert.NotContains(t, line, "-drop_class")
	assert.NotContains(t, line, "-first_only")
}

func TestConvert_MissingConverter(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{MissingTools: []string{"las2txt"}}
	c := NewConverter(toolrun.NewMockRunner(builder), DefaultNoiseClass)

	err := c.Convert("line1.LAS", "line1.txt", AllReturns, true)
	var convErr *demerror.ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "line1.LAS", convErr.File)
}

func TestConvert_UnknownFormat(t *testing.T) {
	c := NewConverter(toolrun.NewMockRunner(&toolrun.MockCommandBuilder{}), DefaultNoiseClass)

	err := c.Convert("line1.spd", "out.txt", AllReturns, true)
	var convErr *demerror.ConversionError
	assert.True(t, errors.As(err, &convErr))
}

func TestConvert_ToolFailure(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{
		Outputs: [][]byte{[]byte("ERROR: corrupt header")},
		Errs:    []error{errors.New("exit status 1")},
	}
	c := NewConverter(toolrun.NewMockRunner(builder), DefaultNoiseClass)

	err := c.Convert("line1.LAS", "out.txt", AllReturns, true)
	var convErr *demerror.ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Contains(t, convErr.Error(), "line1.LAS")
}

func TestFilterASCII_DropsNoiseClass(t *testing.T) {
	in := writePoints(t, asciiPoints)
	out := filepath.Join(t.TempDir(), "filtered.txt")
	c := NewConverter(toolrun.NewMockRunner(&toolrun.MockCommandBuilder{}), DefaultNoiseClass)

	require.NoError(t, c.FilterASCII(in, out, AllReturns, true))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Len(t, lines, 3)
	for _, line := range lines {
		fields := strings.Fields(line)
		assert.NotEqual(t, "7", fields[5], "class 7 row survived: %s", line)
	}
}

func TestFilterASCII_ReturnPolicies(t *testing.T) {
	in := writePoints(t, asciiPoints)
	c := NewConverter(toolrun.NewMockRunner(&toolrun.MockCommandBuilder{}), DefaultNoiseClass)

	t.Run("first only", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "first.txt")
		require.NoError(t, c.FilterASCII(in, out, FirstOnly, true))
		content, _ := os.ReadFile(out)
		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		// Rows 1 and 4 are first returns outside the noise class.
		assert.Len(t, lines, 2)
	})

	t.Run("last only", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "last.txt")
		require.NoError(t, c.FilterASCII(in, out, LastOnly, true))
		content, _ := os.ReadFile(out)
		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		// Rows 3 (2 of 2) and 4 (1 of 1) are last returns.
		assert.Len(t, lines, 2)
	})

	t.Run("keep noise", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "all.txt")
		require.NoError(t, c.FilterASCII(in, out, AllReturns, false))
		content, _ := os.ReadFile(out)
		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		assert.Len(t, lines, 4)
	})
}

func TestASCIIBounds(t *testing.T) {
	in := writePoints(t, asciiPoints)

	box, minZ, maxZ, err := ASCIIBounds(in)
	require.NoError(t, err)

	assert.Equal(t, 400010.0, box.MinX)
	assert.Equal(t, 400016.0, box.MaxX)
	assert.Equal(t, 100020.0, box.MinY)
	assert.Equal(t, 100026.0, box.MaxY)
	assert.Equal(t, 47.8, minZ)
	assert.Equal(t, 51.0, maxZ)
}

func TestASCIIBounds_Empty(t *testing.T) {
	in := writePoints(t, "\n")
	_, _, _, err := ASCIIBounds(in)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{}
	c := NewConverter(toolrun.NewMockRunner(builder), DefaultNoiseClass)

	require.NoError(t, c.Merge([]string{"a.las", "b.las"}, "merged.las"))
	assert.Equal(t, "lasmerge -i a.las -i b.las -o merged.las", builder.CommandLines()[0])
}

func TestFindLidarFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"line1.LAS", "line2.las", "line3.laz", "notes.txt", "line4.spd"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	files, err := FindLidarFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestParseRasterType(t *testing.T) {
	for name, want := range map[string]RasterType{
		"DSM":           DSM,
		"dtm":           DTM,
		"Dem":           DEM,
		"UNFILTEREDDEM": UnfilteredDEM,
		"intensity":     Intensity,
		"chm":           CHM,
	} {
		got, err := ParseRasterType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := ParseRasterType("contours")
	var argErr *demerror.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestRasterTypeSemantics(t *testing.T) {
	assert.Equal(t, FirstOnly, DSM.ReturnPolicy())
	assert.Equal(t, LastOnly, DTM.ReturnPolicy())
	assert.Equal(t, AllReturns, DEM.ReturnPolicy())
	assert.Equal(t, AllReturns, Intensity.ReturnPolicy())

	assert.True(t, DSM.DropNoise())
	assert.False(t, UnfilteredDEM.DropNoise())

	assert.Equal(t, 4, DSM.ZColumn())
	assert.Equal(t, 5, Intensity.ZColumn())

	assert.True(t, DTM.IsElevation())
	assert.False(t, Intensity.IsElevation())
	assert.False(t, CHM.IsElevation())
}
