// Package outline writes footprint shapefiles describing lidar coverage:
// one rectangle per input tile plus a record for the overall extent.
package outline

import (
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
)

// Tile is one lidar file footprint.
type Tile struct {
	Name string
	Box  bounds.Box
}

// Field name length limit in DBF.
const nameFieldLength = 64

func ring(b bounds.Box) []shp.Point {
	return []shp.Point{
		{X: b.MinX, Y: b.MinY},
		{X: b.MinX, Y: b.MaxY},
		{X: b.MaxX, Y: b.MaxY},
		{X: b.MaxX, Y: b.MinY},
		{X: b.MinX, Y: b.MinY},
	}
}

func polygon(b bounds.Box) *shp.Polygon {
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring(b)}))
	return &poly
}

func truncateName(name string) string {
	base := filepath.Base(name)
	if len(base) > nameFieldLength {
		base = base[:nameFieldLength]
	}
	return base
}

// Write writes the tile footprints to a polygon shapefile at path, with the
// union extent as the final record named "coverage". Empty boxes are
// skipped.
func Write(path string, tiles []Tile) error {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		return demerror.NewArgumentError("outline path %s must end in .shp", path)
	}

	var kept []Tile
	var boxes []bounds.Box
	for _, tile := range tiles {
		if tile.Box.Empty() {
			continue
		}
		kept = append(kept, tile)
		boxes = append(boxes, tile.Box)
	}
	if len(kept) == 0 {
		return demerror.NewArgumentError("no tile footprints to write to %s", path)
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return err
	}
	defer w.Close()

	w.SetFields([]shp.Field{shp.StringField("FILE", nameFieldLength)})

	for i, tile := range kept {
		w.Write(polygon(tile.Box))
		w.WriteAttribute(i, 0, truncateName(tile.Name))
	}
	w.Write(polygon(bounds.Union(boxes)))
	w.WriteAttribute(len(kept), 0, "coverage")

	return nil
}
