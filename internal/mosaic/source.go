package mosaic

import (
	"path/filepath"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/config"
	"github.com/arsf-data/dem.toolkit/internal/demerror"
	"github.com/arsf-data/dem.toolkit/internal/projection"
)

// Preset DEM dataset names.
const (
	SourceASTER   = "ASTER"
	SourceNextMap = "NEXTMAP"
	SourceSRTM    = "SRTM"
	SourceCustom  = "CUSTOM"
)

// Native resolutions of the preset datasets, in degrees.
const (
	ASTERResolutionDeg   = 0.000277777777778
	NextMapResolutionDeg = 0.0000554040
)

// Source is a DEM dataset used to patch gaps or to build an APL DEM.
type Source struct {
	Name       string
	Path       string
	Projection string
	Resolution float64
}

// ResolveSource maps a preset name (or a custom mosaic path) to its dataset.
// Preset paths come from the configuration; a preset without a configured
// path is an argument error.
func ResolveSource(cfg *config.Config, name, customPath string) (Source, error) {
	if customPath != "" {
		return Source{
			Name:       SourceCustom,
			Path:       customPath,
			Projection: projection.WGS84LL,
		}, nil
	}

	switch strings.ToUpper(name) {
	case SourceASTER:
		return presetSource(SourceASTER, cfg.GetASTERMosaic(), projection.WGS84LL, ASTERResolutionDeg)
	case SourceNextMap:
		return presetSource(SourceNextMap, cfg.GetNextMapMosaic(), projection.UKBNG, NextMapResolutionDeg)
	case SourceSRTM:
		return presetSource(SourceSRTM, cfg.GetSRTMMosaic(), projection.WGS84LL, ASTERResolutionDeg)
	}
	return Source{}, demerror.NewArgumentError("unknown DEM source %q (expect ASTER, NEXTMAP or SRTM)", name)
}

func presetSource(name, path, proj string, res float64) (Source, error) {
	if path == "" {
		return Source{}, demerror.NewArgumentError("no %s mosaic configured; set it in %s or pass an explicit DEM path", name, config.ConfigFileName)
	}
	return Source{Name: name, Path: path, Projection: proj, Resolution: res}, nil
}

// Separation is a vertical datum shift raster added to patch DEM heights
// before merging.
type Separation struct {
	Path string
	// ASCII grids go through r.in.ascii rather than r.external.
	ASCII bool
	// Negate subtracts instead of adding.
	Negate bool
}

// NewSeparation wraps an explicit separation file path from the CLI.
func NewSeparation(path string) *Separation {
	return &Separation{Path: path, ASCII: isASCIIGrid(path)}
}

func isASCIIGrid(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc", ".txt", ".grd":
		return true
	}
	return false
}

// SeparationFor picks the separation raster that moves heights from the
// source dataset's vertical datum to the output projection's expected one.
// ASTER and SRTM heights are relative to the EGM96 geoid; NextMap heights
// are relative to Ordnance Datum Newlyn. WGS84LL and UTM outputs expect
// heights on the WGS-84 ellipsoid; UKBNG outputs expect Newlyn.
//
// A nil return with nil error means the datums already match. A preset that
// needs a shift without the grid configured is an argument error.
func SeparationFor(cfg *config.Config, src Source, out projection.Projection) (*Separation, error) {
	toNewlyn := out.Name == projection.UKBNG

	switch src.Name {
	case SourceASTER, SourceSRTM:
		if toNewlyn {
			return separationFromConfig(cfg.EGM96UKBNGSepFileBNG, "egm96_ukbng_sep_file_ukbng")
		}
		sep, err := separationFromConfig(cfg.WWGSGSepFile, "wwgsg_sep_file")
		if err != nil {
			return nil, err
		}
		sep.ASCII = true
		return sep, nil
	case SourceNextMap:
		if toNewlyn {
			return nil, nil
		}
		return separationFromConfig(cfg.UKBNGSepFileWGS84, "ukbng_sep_file_wgs84")
	}
	// Custom DEMs are assumed to match unless the caller supplies a file.
	return nil, nil
}

// LidarSeparationFor picks the separation raster applied to reprojected lidar
// rasters. UKBNG lidar heights are relative to Ordnance Datum Newlyn, so a
// reprojection to WGS84LL must also lift them onto the WGS-84 ellipsoid. Any
// other projection pair leaves heights alone.
func LidarSeparationFor(cfg *config.Config, in, out projection.Projection) (*Separation, error) {
	if in.Name == projection.UKBNG && out.Name == projection.WGS84LL {
		return separationFromConfig(cfg.UKBNGSepFileWGS84, "ukbng_sep_file_wgs84")
	}
	return nil, nil
}

func separationFromConfig(path *string, key string) (*Separation, error) {
	if path == nil || *path == "" {
		return nil, demerror.NewArgumentError("vertical datum shift needed but %s is not configured", key)
	}
	return &Separation{Path: *path}, nil
}
