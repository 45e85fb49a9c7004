package bounds

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

func TestBuffer(t *testing.T) {
	b := Box{MinX: 400000, MinY: 100000, MaxX: 410000, MaxY: 108000}
	got := b.Buffer(2000, 2000)

	want := Box{MinX: 398000, MinY: 98000, MaxX: 412000, MaxY: 110000}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Buffer mismatch (-want +got):\n%s", diff)
	}
}

func TestBufferProportion(t *testing.T) {
	b := Box{MinX: 0, MinY: 0, MaxX: 100, MaxY: 50}
	got := b.BufferProportion(0.1)

	want := Box{MinX: -5, MinY: -2.5, MaxX: 105, MaxY: 52.5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BufferProportion mismatch (-want +got):\n%s", diff)
	}
}

func TestUnion(t *testing.T) {
	boxes := []Box{
		{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		{MinX: 5, MinY: -5, MaxX: 20, MaxY: 8},
		{MinX: 2, MinY: 2, MaxX: 4, MaxY: 30},
	}

	got := Union(boxes)
	want := Box{MinX: 0, MinY: -5, MaxX: 20, MaxY: 30}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Union mismatch (-want +got):\n%s", diff)
	}
}

func TestUnion_Empty(t *testing.T) {
	assert.True(t, Union(nil).Empty())
}

func TestEmpty(t *testing.T) {
	assert.True(t, Box{}.Empty())
	assert.True(t, Box{MinX: 10, MaxX: 5, MinY: 0, MaxY: 1}.Empty())
	assert.False(t, Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}.Empty())
}

func TestFromGeoTransform(t *testing.T) {
	// 2 m pixels, origin at (400000, 110000), 5000 x 4000 pixels.
	gt := [6]float64{400000, 2, 0, 110000, 0, -2}
	got := FromGeoTransform(gt, 5000, 4000)

	want := Box{MinX: 400000, MinY: 102000, MaxX: 410000, MaxY: 110000}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromGeoTransform mismatch (-want +got):\n%s", diff)
	}
}

func TestMetreDegreeRoundTrip(t *testing.T) {
	xDeg, yDeg := MetresToDegrees(52.0, 2000, 2000)
	xM, yM := DegreesToMetres(52.0, xDeg, yDeg)

	assert.InDelta(t, 2000, xM, 1e-6)
	assert.InDelta(t, 2000, yM, 1e-6)
}

func TestMetresToDegrees_Magnitude(t *testing.T) {
	// One degree of latitude is about 111 km; 2000 m is therefore about
	// 0.018 degrees at mid latitudes.
	_, yDeg := MetresToDegrees(52.0, 2000, 2000)
	assert.InDelta(t, 0.018, yDeg, 0.002)

	// Longitude degrees shrink with latitude.
	xDegEquator, _ := MetresToDegrees(0, 2000, 2000)
	xDegNorth, _ := MetresToDegrees(60, 2000, 2000)
	assert.Greater(t, xDegNorth, xDegEquator)
}

func TestBufferMetres_LatLong(t *testing.T) {
	b := Box{MinX: -2.5, MinY: 51.9, MaxX: -2.3, MaxY: 52.1}
	got := b.BufferMetres(2000, true)

	assert.Less(t, got.MinX, b.MinX)
	assert.Greater(t, got.MaxY, b.MaxY)
	// Expanded size stays in the right order of magnitude for 2 km.
	assert.InDelta(t, 0.036, got.Height()-b.Height(), 0.006)
}

func TestBufferMetres_Projected(t *testing.T) {
	b := Box{MinX: 400000, MinY: 100000, MaxX: 410000, MaxY: 108000}
	got := b.BufferMetres(2000, false)
	assert.Equal(t, 398000.0, got.MinX)
	assert.Equal(t, 110000.0, got.MaxY)
}

func TestReproject(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{
		Outputs: [][]byte{[]byte("-2.59 51.87 48.9\n-2.44 51.94 48.9\n")},
	}
	runner := toolrun.NewMockRunner(builder)

	got, err := Reproject(runner, Box{MinX: 400000, MinY: 100000, MaxX: 410000, MaxY: 108000},
		"+proj=tmerc +lat_0=49", "+proj=longlat +datum=WGS84 +no_defs")
	require.NoError(t, err)

	assert.InDelta(t, -2.59, got.MinX, 1e-9)
	assert.InDelta(t, 51.94, got.MaxY, 1e-9)

	call := builder.Calls[0]
	assert.Equal(t, "gdaltransform", call.Name)
	assert.Contains(t, call.Args, "-s_srs")
	assert.Contains(t, call.Args, "-t_srs")
	assert.Contains(t, string(call.Executor.Stdin), "400000")
}

func TestReproject_AxisFlip(t *testing.T) {
	// Corners may swap order across a transform; the box must stay
	// min/max normalised.
	builder := &toolrun.MockCommandBuilder{
		Outputs: [][]byte{[]byte("10 20 0\n-5 -8 0\n")},
	}
	runner := toolrun.NewMockRunner(builder)

	got, err := Reproject(runner, Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, Box{MinX: -5, MinY: -8, MaxX: 10, MaxY: 20}, got)
}

func TestReproject_BadOutput(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{
		Outputs: [][]byte{[]byte("not coordinates\n")},
	}
	runner := toolrun.NewMockRunner(builder)

	_, err := Reproject(runner, Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}, "a", "b")
	assert.Error(t, err)
}

func TestReprojectToLatLong(t *testing.T) {
	builder := &toolrun.MockCommandBuilder{
		Outputs: [][]byte{[]byte("-2.59 51.87 48.9\n-2.44 51.94 48.9\n")},
	}
	runner := toolrun.NewMockRunner(builder)

	got, err := ReprojectToLatLong(runner,
		Box{MinX: 400000, MinY: 100000, MaxX: 410000, MaxY: 108000},
		"+proj=tmerc +lat_0=49", "+proj=longlat +datum=WGS84 +no_defs")
	require.NoError(t, err)
	assert.InDelta(t, 51.87, got.MinY, 1e-9)
}

func TestReprojectToLatLong_ScaleMismatch(t *testing.T) {
	// An 8 km box cannot come out a degree tall; the wrong source
	// projection was given.
	builder := &toolrun.MockCommandBuilder{
		Outputs: [][]byte{[]byte("-2.59 51.0 0\n-2.44 52.0 0\n")},
	}
	runner := toolrun.NewMockRunner(builder)

	_, err := ReprojectToLatLong(runner,
		Box{MinX: 400000, MinY: 100000, MaxX: 410000, MaxY: 108000},
		"+proj=tmerc +lat_0=49", "+proj=longlat +datum=WGS84 +no_defs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of scale")
}

func TestMidY(t *testing.T) {
	b := Box{MinY: 50, MaxY: 54}
	if math.Abs(b.MidY()-52) > 1e-12 {
		t.Errorf("MidY = %f, want 52", b.MidY())
	}
}
