package outline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.shp")
	tiles := []Tile{
		{Name: "/data/lidar/line1.las", Box: bounds.Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 5}},
		{Name: "/data/lidar/line2.las", Box: bounds.Box{MinX: 8, MinY: 2, MaxX: 20, MaxY: 9}},
	}

	require.NoError(t, Write(path, tiles))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	var shapes []shp.Shape
	for r.Next() {
		_, s := r.Shape()
		shapes = append(shapes, s)
	}
	// Two tiles plus the coverage record.
	require.Len(t, shapes, 3)

	union, ok := shapes[2].(*shp.Polygon)
	require.True(t, ok)
	assert.Equal(t, 0.0, union.Box.MinX)
	assert.Equal(t, 20.0, union.Box.MaxX)
	assert.Equal(t, 9.0, union.Box.MaxY)

	fields := r.Fields()
	require.NotEmpty(t, fields)
	assert.Equal(t, "line1.las", r.ReadAttribute(0, 0))
	assert.Equal(t, "coverage", r.ReadAttribute(2, 0))
}

func TestWrite_SkipsEmptyBoxes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.shp")
	tiles := []Tile{
		{Name: "good.las", Box: bounds.Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}},
		{Name: "empty.las"},
	}
	require.NoError(t, Write(path, tiles))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	count := 0
	for r.Next() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestWrite_Errors(t *testing.T) {
	var argErr *demerror.ArgumentError

	err := Write(filepath.Join(t.TempDir(), "coverage.tif"), []Tile{{Name: "a"}})
	assert.True(t, errors.As(err, &argErr), "wrong extension")

	err = Write(filepath.Join(t.TempDir(), "coverage.shp"), nil)
	assert.True(t, errors.As(err, &argErr), "no tiles")

	_, statErr := os.Stat(filepath.Join(t.TempDir(), "coverage.shp"))
	assert.True(t, os.IsNotExist(statErr))
}
