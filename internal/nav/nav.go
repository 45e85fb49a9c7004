// Package nav reads aircraft navigation data from ENVI BIL files and derives
// the ground extent swept by the hyperspectral sensors, used to size APL DEMs.
package nav

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
)

// PostProcessedSuffix marks navigation that has been through SBET
// post-processing. Post-processed positions drift further from the raw
// trajectory, so the DEM gets an extra buffer.
const PostProcessedSuffix = "_nav_post_processed.bil"

// MaxViewAngleDeg is the maximum view angle of the hyperspectral sensors.
// Half the swath width on the ground is alt * tan(roll + view angle).
const MaxViewAngleDeg = 18.76

// Buffers applied to navigation-derived bounds for APL DEMs, in degrees.
const (
	AplBufferDeg           = 0.05
	PostProcessedBufferDeg = 0.03
)

// Navigation band order. Every ARSF nav BIL carries these seven bands.
const (
	BandTime = iota
	BandLat
	BandLon
	BandAlt
	BandRoll
	BandPitch
	BandHeading

	numBands
)

// File is an ENVI BIL navigation file with its header parsed.
type File struct {
	Path    string
	Samples int
	Lines   int
	Bands   int

	dataType   int
	interleave string
	bigEndian  bool
}

// Open parses the ENVI header next to the given BIL file. It accepts both
// header naming conventions (file.bil.hdr and file.hdr).
func Open(path string) (*File, error) {
	hdrPath, err := findHeader(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(hdrPath)
	if err != nil {
		return nil, fmt.Errorf("reading header for %s: %w", path, err)
	}

	f := &File{Path: path, interleave: "bil", Bands: 1}
	for _, line := range strings.Split(string(raw), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "samples":
			f.Samples, err = strconv.Atoi(value)
		case "lines":
			f.Lines, err = strconv.Atoi(value)
		case "bands":
			f.Bands, err = strconv.Atoi(value)
		case "data type":
			f.dataType, err = strconv.Atoi(value)
		case "interleave":
			f.interleave = strings.ToLower(value)
		case "byte order":
			f.bigEndian = value == "1"
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s in %s: %w", key, hdrPath, err)
		}
	}

	if f.Samples <= 0 || f.Lines <= 0 {
		return nil, fmt.Errorf("header %s has no dimensions", hdrPath)
	}
	if f.Bands < numBands {
		return nil, fmt.Errorf("%s has %d bands, navigation needs %d", path, f.Bands, numBands)
	}
	return f, nil
}

func findHeader(path string) (string, error) {
	candidates := []string{
		path + ".hdr",
		strings.TrimSuffix(path, filepath.Ext(path)) + ".hdr",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("no ENVI header found for %s", path)
}

// IsPostProcessed reports whether the file holds post-processed navigation.
func (f *File) IsPostProcessed() bool {
	return strings.HasSuffix(filepath.Base(f.Path), PostProcessedSuffix)
}

func (f *File) sampleSize() (int, error) {
	// ENVI data type codes.
	switch f.dataType {
	case 2, 12:
		return 2, nil
	case 3, 13, 4:
		return 4, nil
	case 5:
		return 8, nil
	}
	return 0, fmt.Errorf("%s: unsupported ENVI data type %d", f.Path, f.dataType)
}

func (f *File) decode(raw []byte, index int) float64 {
	var order binary.ByteOrder = binary.LittleEndian
	if f.bigEndian {
		order = binary.BigEndian
	}
	switch f.dataType {
	case 2:
		return float64(int16(order.Uint16(raw[index*2:])))
	case 12:
		return float64(order.Uint16(raw[index*2:]))
	case 3:
		return float64(int32(order.Uint32(raw[index*4:])))
	case 13:
		return float64(order.Uint32(raw[index*4:]))
	case 4:
		return float64(math.Float32frombits(order.Uint32(raw[index*4:])))
	case 5:
		return math.Float64frombits(order.Uint64(raw[index*8:]))
	}
	return math.NaN()
}

// ReadBands reads the whole file and returns one value slice per band, each
// of length Lines*Samples.
func (f *File) ReadBands() ([][]float64, error) {
	size, err := f.sampleSize()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	want := f.Samples * f.Lines * f.Bands * size
	if len(raw) < want {
		return nil, fmt.Errorf("%s is %d bytes, header promises %d", f.Path, len(raw), want)
	}

	bands := make([][]float64, f.Bands)
	for b := range bands {
		bands[b] = make([]float64, 0, f.Lines*f.Samples)
	}
	for line := 0; line < f.Lines; line++ {
		for b := 0; b < f.Bands; b++ {
			for s := 0; s < f.Samples; s++ {
				var index int
				switch f.interleave {
				case "bip":
					index = (line*f.Samples+s)*f.Bands + b
				case "bsq":
					index = (b*f.Lines+line)*f.Samples + s
				default: // bil
					index = (line*f.Bands+b)*f.Samples + s
				}
				bands[b] = append(bands[b], f.decode(raw, index))
			}
		}
	}
	return bands, nil
}

// BandStats summarizes one navigation band.
type BandStats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Stats computes summary statistics for a band.
func Stats(values []float64) BandStats {
	if len(values) == 0 {
		return BandStats{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	return BandStats{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
	}
}

// SwathBufferMetres returns the total ground distance swept by the sensor:
// altitude times the tangent of the extreme roll plus the view angle, summed
// over both sides of the flight line. Roll is signed, so a roll away from one
// side narrows that side's contribution.
func SwathBufferMetres(altMax, rollMin, rollMax float64) float64 {
	pos := altMax * math.Tan(deg2rad(rollMax+MaxViewAngleDeg))
	neg := altMax * math.Tan(deg2rad(rollMin+MaxViewAngleDeg))
	return pos + neg
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

// Extent is a navigation-derived lat/long bounding box.
type Extent struct {
	Box           bounds.Box
	PostProcessed bool
}

// FileBounds returns the lat/long box covered by one navigation file,
// buffered by the swath width at the maximum recorded altitude.
func FileBounds(f *File) (bounds.Box, error) {
	data, err := f.ReadBands()
	if err != nil {
		return bounds.Box{}, err
	}

	lat := Stats(data[BandLat])
	lon := Stats(data[BandLon])
	alt := Stats(data[BandAlt])
	roll := Stats(data[BandRoll])

	box := bounds.Box{MinX: lon.Min, MinY: lat.Min, MaxX: lon.Max, MaxY: lat.Max}
	buffer := SwathBufferMetres(alt.Max, roll.Min, roll.Max)
	return box.BufferMetres(buffer, true), nil
}

// FindNavFiles returns the BIL navigation files under dir, post-processed
// files first so callers can prefer them.
func FindNavFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := strings.ToLower(filepath.Base(path))
		if strings.HasSuffix(name, ".bil") && strings.Contains(name, "nav") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s for navigation: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool {
		pi := strings.HasSuffix(files[i], PostProcessedSuffix)
		pj := strings.HasSuffix(files[j], PostProcessedSuffix)
		if pi != pj {
			return pi
		}
		return files[i] < files[j]
	})
	return files, nil
}

// ProjectNavDir locates the processed navigation directory inside an ARSF
// project: <project>/processing/posatt, falling back to <project>/posatt.
func ProjectNavDir(projectDir string) (string, error) {
	for _, sub := range []string{
		filepath.Join(projectDir, "processing", "posatt"),
		filepath.Join(projectDir, "posatt"),
	} {
		if info, err := os.Stat(sub); err == nil && info.IsDir() {
			return sub, nil
		}
	}
	return "", fmt.Errorf("no posatt directory under %s", projectDir)
}

// DirectoryBounds unions the swath-buffered bounds of every navigation file
// under dir and applies the APL buffer. Post-processed navigation, if any
// file carries the suffix, adds the post-processing buffer.
func DirectoryBounds(dir string) (Extent, error) {
	files, err := FindNavFiles(dir)
	if err != nil {
		return Extent{}, err
	}
	if len(files) == 0 {
		return Extent{}, fmt.Errorf("no navigation BIL files under %s", dir)
	}

	var ext Extent
	var boxes []bounds.Box
	for _, path := range files {
		f, err := Open(path)
		if err != nil {
			return Extent{}, err
		}
		box, err := FileBounds(f)
		if err != nil {
			return Extent{}, err
		}
		boxes = append(boxes, box)
		if f.IsPostProcessed() {
			ext.PostProcessed = true
		}
	}

	buffer := AplBufferDeg
	if ext.PostProcessed {
		buffer += PostProcessedBufferDeg
	}
	ext.Box = bounds.Union(boxes).Buffer(buffer, buffer)
	return ext, nil
}
