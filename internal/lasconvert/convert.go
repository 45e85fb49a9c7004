package lasconvert

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

// ASCII column order, 1-based as consumed by GRASS r.in.xyz.
const (
	colTime = iota + 1
	colX
	colY
	colElevation
	colIntensity
	colClassification
	colReturnNumber
	colNumberOfReturns
	colScanAngle

	numColumns = colScanAngle
)

// DefaultNoiseClass is the LAS classification dropped as noise.
const DefaultNoiseClass = 7

// Converter turns LiDAR files into space-separated ASCII rows in the fixed
// column order time, x, y, elevation, intensity, classification, return
// number, number of returns, scan angle.
type Converter struct {
	Runner     *toolrun.Runner
	NoiseClass int
}

// NewConverter creates a Converter dropping the given noise class.
func NewConverter(runner *toolrun.Runner, noiseClass int) *Converter {
	return &Converter{Runner: runner, NoiseClass: noiseClass}
}

// IsLAS reports whether path looks like a LAS or LASzip file.
func IsLAS(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".las", ".laz":
		return true
	}
	return false
}

// IsASCII reports whether path looks like an ASCII point file.
func IsASCII(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".csv", ".ascii":
		return true
	}
	return false
}

// Convert writes the filtered ASCII form of a LiDAR tile. LAS input goes
// through las2txt; ASCII input is filtered row by row with the same
// semantics. dropNoise removes the converter's noise class; policy selects
// returns.
func (c *Converter) Convert(in, out string, policy ReturnPolicy, dropNoise bool) error {
	switch {
	case IsLAS(in):
		return c.convertLAS(in, out, policy, dropNoise)
	case IsASCII(in):
		return c.FilterASCII(in, out, policy, dropNoise)
	}
	return &demerror.ConversionError{File: in, Err: fmt.Errorf("unrecognised lidar format %q", filepath.Ext(in))}
}

func (c *Converter) convertLAS(in, out string, policy ReturnPolicy, dropNoise bool) error {
	if !c.Runner.Available("las2txt") {
		return &demerror.ConversionError{File: in, Err: fmt.Errorf("las2txt not installed")}
	}

	args := []string{"-parse", "txyzicrna", "-sep", "space"}
	if dropNoise {
		args = append(args, "-drop_class", strconv.Itoa(c.NoiseClass))
	}
	switch policy {
	case FirstOnly:
		args = append(args, "-first_only")
	case LastOnly:
		args = append(args, "-last_only")
	}
	args = append(args, "-i", in, "-o", out)

	if _, err := c.Runner.Run("las2txt", args...); err != nil {
		return &demerror.ConversionError{File: in, Err: err}
	}
	return nil
}

// FilterASCII filters an already-ASCII point file with the class-drop and
// return-policy semantics of Convert.
func (c *Converter) FilterASCII(in, out string, policy ReturnPolicy, dropNoise bool) error {
	inFile, err := os.Open(in)
	if err != nil {
		return &demerror.ConversionError{File: in, Err: err}
	}
	defer inFile.Close()

	outFile, err := os.Create(out)
	if err != nil {
		return &demerror.ConversionError{File: in, Err: err}
	}
	defer outFile.Close()

	w := bufio.NewWriter(outFile)
	scanner := bufio.NewScanner(inFile)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < numColumns {
			continue
		}

		if dropNoise {
			class, err := strconv.Atoi(fields[colClassification-1])
			if err == nil && class == c.NoiseClass {
				continue
			}
		}

		switch policy {
		case FirstOnly:
			if fields[colReturnNumber-1] != "1" {
				continue
			}
		case LastOnly:
			if fields[colReturnNumber-1] != fields[colNumberOfReturns-1] {
				continue
			}
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return &demerror.ConversionError{File: in, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return &demerror.ConversionError{File: in, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &demerror.ConversionError{File: in, Err: err}
	}
	return nil
}

// ASCIIBounds streams an ASCII point file and returns its x/y extent and
// elevation range.
func ASCIIBounds(path string) (box bounds.Box, minZ, maxZ float64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return bounds.Box{}, 0, 0, err
	}
	defer file.Close()

	box = bounds.Box{MinX: 1e10, MinY: 1e10, MaxX: -1e10, MaxY: -1e10}
	minZ, maxZ = 1e10, -1e10
	seen := false

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < colElevation {
			continue
		}
		x, errX := strconv.ParseFloat(fields[colX-1], 64)
		y, errY := strconv.ParseFloat(fields[colY-1], 64)
		z, errZ := strconv.ParseFloat(fields[colElevation-1], 64)
		if errX != nil || errY != nil || errZ != nil {
			continue
		}
		seen = true
		if x < box.MinX {
			box.MinX = x
		}
		if x > box.MaxX {
			box.MaxX = x
		}
		if y < box.MinY {
			box.MinY = y
		}
		if y > box.MaxY {
			box.MaxY = y
		}
		if z < minZ {
			minZ = z
		}
		if z > maxZ {
			maxZ = z
		}
	}
	if err := scanner.Err(); err != nil {
		return bounds.Box{}, 0, 0, err
	}
	if !seen {
		return bounds.Box{}, 0, 0, fmt.Errorf("no points found in %s", path)
	}
	return box, minZ, maxZ, nil
}

// Merge combines LAS files into one with lasmerge.
func (c *Converter) Merge(inputs []string, out string) error {
	if !c.Runner.Available("lasmerge") {
		return &demerror.ConversionError{File: out, Err: fmt.Errorf("lasmerge not installed")}
	}
	args := []string{}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args, "-o", out)
	if _, err := c.Runner.Run("lasmerge", args...); err != nil {
		return &demerror.ConversionError{File: out, Err: err}
	}
	return nil
}

// Zip compresses a LAS file to LASzip.
func (c *Converter) Zip(in, out string) error {
	if !c.Runner.Available("laszip") {
		return &demerror.ConversionError{File: in, Err: fmt.Errorf("laszip not installed")}
	}
	if _, err := c.Runner.Run("laszip", "-i", in, "-o", out); err != nil {
		return &demerror.ConversionError{File: in, Err: err}
	}
	return nil
}

// FindLidarFiles walks dir collecting LAS and LASzip files, sorted by path.
func FindLidarFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && IsLAS(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return files, nil
}
