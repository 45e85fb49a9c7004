// Package raster handles the raster formats the toolkit touches directly:
// ESRI ASCII grids (points2grid output, ASCII separation files), ENVI
// headers, and the GDAL utilities used for everything else.
package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
)

// EsriASCIIRaster represents an ESRI ASCII Grid.
type EsriASCIIRaster struct {
	NCols, NRows int
	// Lower-left coordinate, either of the corner or of the centre of the
	// lower-left cell depending on CellCenter.
	XLL, YLL    float64
	CellCenter  bool
	CellSize    float64
	NoDataValue float64
	// Data rows run north to south, as stored in the file.
	Data [][]float64
}

// ParseEsriASCIIRaster reads a grid from r.
func ParseEsriASCIIRaster(r io.Reader) (EsriASCIIRaster, error) {
	raster := EsriASCIIRaster{NoDataValue: -9999}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	headerDone := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if !headerDone {
			key := strings.ToLower(fields[0])
			switch key {
			case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
				if len(fields) != 2 {
					return raster, fmt.Errorf("malformed header line %q", line)
				}
				value, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return raster, fmt.Errorf("malformed header value in %q: %w", line, err)
				}
				switch key {
				case "ncols":
					raster.NCols = int(value)
				case "nrows":
					raster.NRows = int(value)
				case "xllcorner":
					raster.XLL = value
				case "yllcorner":
					raster.YLL = value
				case "xllcenter":
					raster.XLL = value
					raster.CellCenter = true
				case "yllcenter":
					raster.YLL = value
					raster.CellCenter = true
				case "cellsize":
					raster.CellSize = value
				case "nodata_value":
					raster.NoDataValue = value
				}
				continue
			}
			headerDone = true
		}

		row := make([]float64, 0, raster.NCols)
		for _, f := range fields {
			value, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return raster, fmt.Errorf("malformed data value %q: %w", f, err)
			}
			row = append(row, value)
		}
		raster.Data = append(raster.Data, row)
	}
	if err := scanner.Err(); err != nil {
		return raster, err
	}

	if raster.NCols == 0 || raster.NRows == 0 || raster.CellSize == 0 {
		return raster, fmt.Errorf("incomplete ESRI ASCII header (ncols=%d nrows=%d cellsize=%f)",
			raster.NCols, raster.NRows, raster.CellSize)
	}
	if len(raster.Data) != raster.NRows {
		return raster, fmt.Errorf("expected %d rows, got %d", raster.NRows, len(raster.Data))
	}
	for i, row := range raster.Data {
		if len(row) != raster.NCols {
			return raster, fmt.Errorf("row %d has %d values, expected %d", i, len(row), raster.NCols)
		}
	}
	return raster, nil
}

// ReadEsriASCIIRaster reads a grid from a file.
func ReadEsriASCIIRaster(path string) (EsriASCIIRaster, error) {
	file, err := os.Open(path)
	if err != nil {
		return EsriASCIIRaster{}, err
	}
	defer file.Close()
	return ParseEsriASCIIRaster(file)
}

// Dims returns the dimensions of the grid.
func (raster EsriASCIIRaster) Dims() (c, r int) {
	return raster.NCols, raster.NRows
}

// Z returns the grid value at column c, row r (row 0 is the north edge).
func (raster EsriASCIIRaster) Z(c, r int) float64 {
	return raster.Data[r][c]
}

// origin returns the corner coordinate of the lower-left cell.
func (raster EsriASCIIRaster) origin() (x, y float64) {
	if raster.CellCenter {
		return raster.XLL - raster.CellSize/2, raster.YLL - raster.CellSize/2
	}
	return raster.XLL, raster.YLL
}

// Bounds returns the outer extent of the grid.
func (raster EsriASCIIRaster) Bounds() bounds.Box {
	x0, y0 := raster.origin()
	return bounds.Box{
		MinX: x0,
		MinY: y0,
		MaxX: x0 + float64(raster.NCols)*raster.CellSize,
		MaxY: y0 + float64(raster.NRows)*raster.CellSize,
	}
}

// Sample returns the bilinearly interpolated value at (x, y). Used to apply
// separation-file offsets at arbitrary points. Nodata cells poison the
// interpolation and return the nodata value. Points outside the grid return
// nodata.
func (raster EsriASCIIRaster) Sample(x, y float64) float64 {
	x0, y0 := raster.origin()

	// Continuous cell coordinates, relative to cell centres.
	fc := (x-x0)/raster.CellSize - 0.5
	fr := float64(raster.NRows) - 0.5 - (y-y0)/raster.CellSize

	c0 := int(fc)
	r0 := int(fr)
	if fc < 0 || fr < 0 || c0 >= raster.NCols || r0 >= raster.NRows {
		return raster.NoDataValue
	}

	c1 := c0 + 1
	if c1 >= raster.NCols {
		c1 = c0
	}
	r1 := r0 + 1
	if r1 >= raster.NRows {
		r1 = r0
	}

	v00 := raster.Z(c0, r0)
	v10 := raster.Z(c1, r0)
	v01 := raster.Z(c0, r1)
	v11 := raster.Z(c1, r1)
	for _, v := range []float64{v00, v10, v01, v11} {
		if v == raster.NoDataValue {
			return raster.NoDataValue
		}
	}

	tx := fc - float64(c0)
	ty := fr - float64(r0)
	top := v00*(1-tx) + v10*tx
	bottom := v01*(1-tx) + v11*tx
	return top*(1-ty) + bottom*ty
}

// Write writes the grid in ESRI ASCII format.
func (raster EsriASCIIRaster) Write(w io.Writer) error {
	xKey, yKey := "xllcorner", "yllcorner"
	if raster.CellCenter {
		xKey, yKey = "xllcenter", "yllcenter"
	}
	if _, err := fmt.Fprintf(w, "ncols %d\nnrows %d\n%s %f\n%s %f\ncellsize %f\nNODATA_value %g\n",
		raster.NCols, raster.NRows, xKey, raster.XLL, yKey, raster.YLL,
		raster.CellSize, raster.NoDataValue); err != nil {
		return err
	}
	for _, row := range raster.Data {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return nil
}
