package raster

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

// GDAL drives the GDAL command line utilities.
type GDAL struct {
	Runner *toolrun.Runner

	// Defaults applied when an operation does not override them.
	Format          string
	DataType        string
	CreationOptions []string
	Resample        string
}

// NewGDAL creates a GDAL wrapper with the toolkit defaults.
func NewGDAL(runner *toolrun.Runner) *GDAL {
	return &GDAL{
		Runner:          runner,
		Format:          "ENVI",
		DataType:        "Float32",
		CreationOptions: []string{"INTERLEAVE=BIL"},
		Resample:        "near",
	}
}

// Dataset describes a raster as reported by gdalinfo.
type Dataset struct {
	Path         string
	XSize, YSize int
	GeoTransform [6]float64
	Proj4        string
	NoData       float64
	HasNoData    bool
}

// Bounds returns the dataset extent from its geotransform.
func (d Dataset) Bounds() bounds.Box {
	return bounds.FromGeoTransform(d.GeoTransform, d.XSize, d.YSize)
}

// Info runs gdalinfo and parses size, geotransform, projection and nodata.
func (g *GDAL) Info(path string) (Dataset, error) {
	output, err := g.Runner.Run("gdalinfo", "-proj4", path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseInfo(path, output)
}

func parseInfo(path, output string) (Dataset, error) {
	d := Dataset{Path: path}
	lines := strings.Split(output, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, "Size is "):
			parts := strings.Split(strings.TrimPrefix(line, "Size is "), ",")
			if len(parts) == 2 {
				d.XSize, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
				d.YSize, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
			}
		case strings.HasPrefix(line, "Origin = ("):
			x, y, ok := parsePair(line, "Origin = (")
			if ok {
				d.GeoTransform[0] = x
				d.GeoTransform[3] = y
			}
		case strings.HasPrefix(line, "Pixel Size = ("):
			x, y, ok := parsePair(line, "Pixel Size = (")
			if ok {
				d.GeoTransform[1] = x
				d.GeoTransform[5] = y
			}
		case strings.HasPrefix(line, "NoData Value="):
			value, err := strconv.ParseFloat(strings.TrimPrefix(line, "NoData Value="), 64)
			if err == nil {
				d.NoData = value
				d.HasNoData = true
			}
		case strings.HasPrefix(line, "PROJ.4 string is:"):
			if i+1 < len(lines) {
				d.Proj4 = strings.Trim(strings.TrimSpace(lines[i+1]), "'")
			}
		case strings.HasPrefix(line, "+proj"):
			if d.Proj4 == "" {
				d.Proj4 = strings.Trim(line, "'")
			}
		}
	}
	if d.XSize == 0 || d.YSize == 0 {
		return d, fmt.Errorf("could not parse gdalinfo output for %s", path)
	}
	return d, nil
}

func parsePair(line, prefix string) (x, y float64, ok bool) {
	body := strings.TrimSuffix(strings.TrimPrefix(line, prefix), ")")
	parts := strings.Split(body, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	return x, y, errX == nil && errY == nil
}

// Translate converts a raster to the format implied by the output extension.
// projOverride, when non-empty, is assigned with -a_srs.
func (g *GDAL) Translate(in, out, projOverride string) error {
	args := []string{"-of", DriverForPath(out), "-ot", g.DataType}
	if DriverForPath(out) == "ENVI" {
		for _, co := range g.CreationOptions {
			args = append(args, "-co", co)
		}
	}
	if projOverride != "" {
		args = append(args, "-a_srs", projOverride)
	}
	args = append(args, in, out)
	if _, err := g.Runner.Run("gdal_translate", args...); err != nil {
		return fmt.Errorf("translating %s: %w", in, err)
	}
	return nil
}

// SubsetSameProjection crops a raster to the box without reprojecting, using
// gdal_translate -projwin (ulx uly lrx lry).
func (g *GDAL) SubsetSameProjection(in, out string, box bounds.Box) error {
	args := []string{
		"-of", DriverForPath(out), "-ot", g.DataType,
		"-projwin",
		formatCoord(box.MinX), formatCoord(box.MaxY),
		formatCoord(box.MaxX), formatCoord(box.MinY),
	}
	if DriverForPath(out) == "ENVI" {
		for _, co := range g.CreationOptions {
			args = append(args, "-co", co)
		}
	}
	args = append(args, in, out)
	if _, err := g.Runner.Run("gdal_translate", args...); err != nil {
		return fmt.Errorf("subsetting %s: %w", in, err)
	}
	return nil
}

// WarpOptions control a gdalwarp invocation.
type WarpOptions struct {
	SrcProj4 string
	DstProj4 string
	Box      *bounds.Box
	// Resolution in target units; 0 keeps the source resolution.
	Resolution float64
	NoData     *float64
}

// Warp reprojects and/or crops a raster.
func (g *GDAL) Warp(in, out string, opts WarpOptions) error {
	args := []string{"-overwrite", "-of", DriverForPath(out), "-ot", g.DataType, "-r", g.Resample}
	if DriverForPath(out) == "ENVI" {
		for _, co := range g.CreationOptions {
			args = append(args, "-co", co)
		}
	}
	if opts.SrcProj4 != "" {
		args = append(args, "-s_srs", opts.SrcProj4)
	}
	if opts.DstProj4 != "" {
		args = append(args, "-t_srs", opts.DstProj4)
	}
	if opts.Box != nil {
		args = append(args, "-te",
			formatCoord(opts.Box.MinX), formatCoord(opts.Box.MinY),
			formatCoord(opts.Box.MaxX), formatCoord(opts.Box.MaxY))
	}
	if opts.Resolution != 0 {
		res := formatCoord(opts.Resolution)
		args = append(args, "-tr", res, res)
	}
	if opts.NoData != nil {
		args = append(args, "-srcnodata", formatCoord(*opts.NoData), "-dstnodata", formatCoord(*opts.NoData))
	}
	args = append(args, in, out)
	if _, err := g.Runner.Run("gdalwarp", args...); err != nil {
		return fmt.Errorf("warping %s: %w", in, err)
	}
	return nil
}

// DEMProducts accepted by gdaldem.
var demProducts = map[string]bool{
	"hillshade": true,
	"slope":     true,
	"aspect":    true,
	"TRI":       true,
	"TPI":       true,
	"roughness": true,
}

// DEMProduct derives a terrain product (hillshade, slope, aspect, TRI, TPI,
// roughness) with gdaldem.
func (g *GDAL) DEMProduct(product, in, out string) error {
	if !demProducts[product] {
		return fmt.Errorf("unknown gdaldem product %q", product)
	}
	args := []string{product, in, out, "-of", DriverForPath(out)}
	if _, err := g.Runner.Run("gdaldem", args...); err != nil {
		return fmt.Errorf("deriving %s from %s: %w", product, in, err)
	}
	return nil
}

// BuildVRT assembles inputs into a virtual mosaic.
func (g *GDAL) BuildVRT(out string, inputs ...string) error {
	args := append([]string{out}, inputs...)
	if _, err := g.Runner.Run("gdalbuildvrt", args...); err != nil {
		return fmt.Errorf("building VRT %s: %w", out, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
