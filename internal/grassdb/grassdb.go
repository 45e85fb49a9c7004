// Package grassdb manages per-invocation GRASS databases and builds the
// GRASS module invocations used for gridding and mosaicking. Modules run in
// batch through the grass launcher (`grass <mapset> --exec ...`); nothing
// here touches GRASS internals.
package grassdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/arsf-data/dem.toolkit/internal/bounds"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

// Database is a scoped GRASS database owned by one invocation. Create it at
// run start and Remove it on every exit path unless retention was requested.
type Database struct {
	Runner   *toolrun.Runner
	Binary   string
	Path     string
	Location string

	// Keep prevents Remove from deleting the database.
	Keep bool
}

// Create makes a new GRASS database under tempRoot with a location in the
// given projection. The location starts XY and is assigned the projection
// with g.proj, which keeps the launcher arguments portable across GRASS
// versions.
func Create(runner *toolrun.Runner, binary, tempRoot, proj4 string, keep bool) (*Database, error) {
	if binary == "" {
		binary = "grass"
	}
	if !runner.Available(binary) {
		return nil, &demerror.BackendUnavailableError{Backend: "GRASS", Tool: binary,
			Err: fmt.Errorf("not found on PATH")}
	}

	db := &Database{
		Runner:   runner,
		Binary:   binary,
		Path:     filepath.Join(tempRoot, "grassdb-"+uuid.NewString()),
		Location: "processing",
		Keep:     keep,
	}

	if err := os.MkdirAll(db.Path, 0755); err != nil {
		return nil, fmt.Errorf("creating GRASS database dir: %w", err)
	}

	if _, err := runner.Run(binary, "-e", "-c", "XY", filepath.Join(db.Path, db.Location)); err != nil {
		return nil, fmt.Errorf("creating GRASS location: %w", err)
	}
	if proj4 != "" {
		if err := db.Exec("g.proj", "-c", "proj4="+proj4); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Open reuses an existing GRASS database created by an earlier run.
func Open(runner *toolrun.Runner, binary, path string, keep bool) (*Database, error) {
	if binary == "" {
		binary = "grass"
	}
	if _, err := os.Stat(filepath.Join(path, "processing", "PERMANENT")); err != nil {
		return nil, fmt.Errorf("not a GRASS database: %s", path)
	}
	return &Database{Runner: runner, Binary: binary, Path: path, Location: "processing", Keep: keep}, nil
}

// Mapset returns the PERMANENT mapset path used for batch execution.
func (db *Database) Mapset() string {
	return filepath.Join(db.Path, db.Location, "PERMANENT")
}

// Exec runs one GRASS module in the database.
func (db *Database) Exec(module string, args ...string) error {
	full := append([]string{db.Mapset(), "--exec", module}, args...)
	if _, err := db.Runner.Run(db.Binary, full...); err != nil {
		return fmt.Errorf("GRASS %s: %w", module, err)
	}
	return nil
}

// Remove deletes the database unless retention was requested.
func (db *Database) Remove() error {
	if db.Keep {
		return nil
	}
	return os.RemoveAll(db.Path)
}

// RasterName derives a GRASS raster name from a file path. GRASS names
// cannot contain '-'.
func RasterName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.ReplaceAll(name, "-", "_")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SetRegion sets the computational region to the box at the resolution.
func (db *Database) SetRegion(box bounds.Box, resolution float64) error {
	return db.Exec("g.region",
		"n="+formatFloat(box.MaxY),
		"s="+formatFloat(box.MinY),
		"e="+formatFloat(box.MaxX),
		"w="+formatFloat(box.MinX),
		"res="+formatFloat(resolution))
}

// ImportXYZ grids an ASCII point file into a raster, averaging the value
// column per cell. zColumn is the 1-based column gridded (elevation or
// intensity).
func (db *Database) ImportXYZ(asciiFile, rasterName string, zColumn int) error {
	return db.Exec("r.in.xyz",
		"input="+asciiFile,
		"output="+rasterName,
		"method=mean",
		"fs=space",
		"x=2", "y=3",
		fmt.Sprintf("z=%d", zColumn),
		"percent=100",
		"--overwrite")
}

// ImportExternal links a GDAL raster into the database without copying.
// overrideProjection skips the projection check for rasters known to match.
func (db *Database) ImportExternal(path, rasterName string, overrideProjection bool) error {
	args := []string{"-e"}
	if overrideProjection {
		args = append(args, "-o")
	}
	args = append(args, "input="+path, "output="+rasterName, "--overwrite")
	return db.Exec("r.external", args...)
}

// ImportASCIIGrid imports an ESRI ASCII grid (used for ASCII separation
// files).
func (db *Database) ImportASCIIGrid(path, rasterName string) error {
	return db.Exec("r.in.ascii", "input="+path, "output="+rasterName, "--overwrite")
}

// Patch merges rasters, first listed on top; the -z flag treats zeros as
// nulls so nodata does not mask underlying tiles.
func (db *Database) Patch(rasterNames []string, out string) error {
	return db.Exec("r.patch", "-z",
		"input="+strings.Join(rasterNames, ","),
		"output="+out,
		"--overwrite")
}

// ApplyOffset adds a separation raster to a DEM where the DEM holds data:
// out = if(dem != nodata, dem + sep, nodata). Pass negate to subtract.
func (db *Database) ApplyOffset(dem, separation, out string, nodata float64, negate bool) error {
	op := "+"
	if negate {
		op = "-"
	}
	expr := fmt.Sprintf("%s = if(%s != %s, %s %s %s, %s)",
		out, dem, formatFloat(nodata), dem, op, separation, formatFloat(nodata))
	return db.Exec("r.mapcalc", "expression="+expr, "--overwrite")
}

// ReplaceNodata rewrites one nodata value as another.
func (db *Database) ReplaceNodata(in, out string, inNodata, outNodata float64) error {
	expr := fmt.Sprintf("%s = if(%s == %s, %s, %s)",
		out, in, formatFloat(inNodata), formatFloat(outNodata), in)
	return db.Exec("r.mapcalc", "expression="+expr, "--overwrite")
}

// FillNulls interpolates across nodata holes.
func (db *Database) FillNulls(in, out string) error {
	return db.Exec("r.fillnulls",
		"input="+in, "output="+out,
		"tension=40", "smooth=0.1",
		"--overwrite")
}

// ShadedRelief derives a shaded relief raster.
func (db *Database) ShadedRelief(in, out string) error {
	return db.Exec("r.shaded.relief", "input="+in, "output="+out, "--overwrite")
}

// RescaleEq equalises a raster into the 1-255 byte range for screenshots.
func (db *Database) RescaleEq(in, out string) error {
	return db.Exec("r.rescale.eq", "input="+in, "output="+out, "to=1,255", "--overwrite")
}

// ExportRaster writes a raster out through GDAL.
func (db *Database) ExportRaster(rasterName, outPath, format, dataType string, nodata float64) error {
	args := []string{
		"-f",
		"input=" + rasterName,
		"output=" + outPath,
		"format=" + format,
		"type=" + dataType,
		"nodata=" + formatFloat(nodata),
		"--overwrite",
	}
	if format == "ENVI" {
		args = append(args, "createopt=INTERLEAVE=BIL")
	}
	return db.Exec("r.out.gdal", args...)
}
