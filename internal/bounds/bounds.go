// Package bounds provides bounding extents and the coordinate arithmetic
// used when sizing output rasters: buffering, unions, metre/degree
// conversion and reprojection of box corners.
package bounds

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

// WGS-84 ellipsoid semi-axes in metres.
const (
	semiMajor = 6378137.0
	semiMinor = 6356752.314245
)

// Box is a bounding extent in the coordinate units of its projection.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Empty reports whether the box encloses no area.
func (b Box) Empty() bool {
	return b.MinX >= b.MaxX || b.MinY >= b.MaxY
}

// Width returns the x extent.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the y extent.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// MidY returns the mid latitude (or northing) of the box.
func (b Box) MidY() float64 { return (b.MinY + b.MaxY) / 2 }

// Union returns the smallest box covering b and other.
func (b Box) Union(other Box) Box {
	return Box{
		MinX: math.Min(b.MinX, other.MinX),
		MinY: math.Min(b.MinY, other.MinY),
		MaxX: math.Max(b.MaxX, other.MaxX),
		MaxY: math.Max(b.MaxY, other.MaxY),
	}
}

// Buffer expands the box by the given distances per side, in box units.
func (b Box) Buffer(x, y float64) Box {
	return Box{
		MinX: b.MinX - x,
		MinY: b.MinY - y,
		MaxX: b.MaxX + x,
		MaxY: b.MaxY + y,
	}
}

// BufferProportion expands the box by a proportion of its size, half the
// proportion added to each side.
func (b Box) BufferProportion(proportion float64) Box {
	return b.Buffer(b.Width()*proportion/2, b.Height()*proportion/2)
}

// BufferMetres expands a geographic (degree) box by distances given in
// metres, converted at the box's mid latitude. For projected boxes use
// Buffer directly.
func (b Box) BufferMetres(metres float64, latLong bool) Box {
	if !latLong {
		return b.Buffer(metres, metres)
	}
	xDeg, yDeg := MetresToDegrees(b.MidY(), metres, metres)
	return b.Buffer(xDeg, yDeg)
}

func (b Box) String() string {
	return fmt.Sprintf("[%f, %f, %f, %f]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// FromGeoTransform derives the box of a north-up raster from its GDAL
// geotransform and pixel dimensions.
func FromGeoTransform(gt [6]float64, xSize, ySize int) Box {
	return Box{
		MinX: gt[0],
		MaxY: gt[3],
		MaxX: gt[0] + gt[1]*float64(xSize),
		MinY: gt[3] + gt[5]*float64(ySize),
	}
}

// Union returns the union of all boxes, or a zero box for no input.
func Union(boxes []Box) Box {
	if len(boxes) == 0 {
		return Box{}
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out = out.Union(b)
	}
	return out
}

// MetresToDegrees converts x/y sizes in metres to degree sizes at the given
// latitude, using the WGS-84 radii of curvature.
func MetresToDegrees(latitude, xMetres, yMetres float64) (xDeg, yDeg float64) {
	mLat, nLon := radiiOfCurvature(latitude)
	yDeg = yMetres / (mLat * math.Pi / 180)
	xDeg = xMetres / (nLon * math.Cos(latitude*math.Pi/180) * math.Pi / 180)
	return xDeg, yDeg
}

// DegreesToMetres converts x/y sizes in degrees to metre sizes at the given
// latitude.
func DegreesToMetres(latitude, xDeg, yDeg float64) (xMetres, yMetres float64) {
	mLat, nLon := radiiOfCurvature(latitude)
	yMetres = yDeg * mLat * math.Pi / 180
	xMetres = xDeg * nLon * math.Cos(latitude*math.Pi/180) * math.Pi / 180
	return xMetres, yMetres
}

// radiiOfCurvature returns the meridional and normal radii at a latitude.
func radiiOfCurvature(latitude float64) (mLat, nLon float64) {
	latRad := latitude * math.Pi / 180
	rSq := math.Pow(semiMajor*math.Cos(latRad), 2) + math.Pow(semiMinor*math.Sin(latRad), 2)
	mLat = math.Pow(semiMajor*semiMinor, 2) / math.Pow(rSq, 1.5)
	nLon = semiMajor * semiMajor / math.Sqrt(rSq)
	return mLat, nLon
}

// Reproject transforms the box corners between projections by running
// gdaltransform. Only the min and max corners are transformed, matching the
// crop behaviour of the GDAL subset utilities.
func Reproject(runner *toolrun.Runner, b Box, srcProj4, dstProj4 string) (Box, error) {
	stdin := fmt.Sprintf("%f %f\n%f %f\n", b.MinX, b.MinY, b.MaxX, b.MaxY)
	output, err := runner.RunStdin([]byte(stdin), "gdaltransform",
		"-s_srs", srcProj4, "-t_srs", dstProj4)
	if err != nil {
		return Box{}, fmt.Errorf("reprojecting bounds: %w", err)
	}

	var pts [][2]float64
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		x, errX := strconv.ParseFloat(fields[0], 64)
		y, errY := strconv.ParseFloat(fields[1], 64)
		if errX != nil || errY != nil {
			continue
		}
		pts = append(pts, [2]float64{x, y})
	}
	if len(pts) != 2 {
		return Box{}, fmt.Errorf("reprojecting bounds: expected 2 points from gdaltransform, got %d", len(pts))
	}

	return Box{
		MinX: math.Min(pts[0][0], pts[1][0]),
		MinY: math.Min(pts[0][1], pts[1][1]),
		MaxX: math.Max(pts[0][0], pts[1][0]),
		MaxY: math.Max(pts[0][1], pts[1][1]),
	}, nil
}

// ReprojectToLatLong transforms a projected (metre) box to geographic
// coordinates and checks the height of the result against the metre extent
// converted at the equator. The conversion is approximate, but a mismatch
// beyond 50 percent means the wrong source projection was given.
func ReprojectToLatLong(runner *toolrun.Runner, b Box, srcProj4, dstProj4 string) (Box, error) {
	out, err := Reproject(runner, b, srcProj4, dstProj4)
	if err != nil {
		return Box{}, err
	}
	_, checkY := MetresToDegrees(0, b.Width(), b.Height())
	if out.Height() > checkY*1.5 || out.Height() < checkY*0.5 {
		return Box{}, fmt.Errorf("reprojected bounds %s are out of scale with the source extent %s; check the source projection", out, b)
	}
	return out, nil
}
