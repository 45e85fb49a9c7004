// Package lasconvert converts LiDAR files (LAS or ASCII) into the plain
// text rows the gridding backends consume, and carries the raster type
// semantics that decide which points survive conversion.
package lasconvert

import (
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
)

// RasterType selects which surface a backend grids.
type RasterType string

const (
	// DSM grids first returns, surface including canopy and buildings.
	DSM RasterType = "DSM"
	// DTM grids last returns or ground-classified points.
	DTM RasterType = "DTM"
	// DEM grids all returns.
	DEM RasterType = "DEM"
	// UnfilteredDEM grids all returns with noise points kept.
	UnfilteredDEM RasterType = "UNFILTEREDDEM"
	// Intensity grids return amplitude instead of elevation.
	Intensity RasterType = "INTENSITY"
	// CHM is canopy height above ground, SPDLib only.
	CHM RasterType = "CHM"
)

// ParseRasterType resolves a raster type name, case-insensitively.
func ParseRasterType(s string) (RasterType, error) {
	switch RasterType(strings.ToUpper(s)) {
	case DSM:
		return DSM, nil
	case DTM:
		return DTM, nil
	case DEM:
		return DEM, nil
	case UnfilteredDEM:
		return UnfilteredDEM, nil
	case Intensity:
		return Intensity, nil
	case CHM:
		return CHM, nil
	}
	return "", demerror.NewArgumentError("unrecognised raster type %q", s)
}

// ReturnPolicy selects which returns survive conversion.
type ReturnPolicy int

const (
	// AllReturns keeps every return.
	AllReturns ReturnPolicy = iota
	// FirstOnly keeps first returns.
	FirstOnly
	// LastOnly keeps last returns.
	LastOnly
)

// ReturnPolicy gives the return selection used when gridding this type.
func (rt RasterType) ReturnPolicy() ReturnPolicy {
	switch rt {
	case DSM:
		return FirstOnly
	case DTM:
		return LastOnly
	default:
		return AllReturns
	}
}

// DropNoise reports whether the noise class is dropped for this type.
// Only UNFILTEREDDEM keeps noise points.
func (rt RasterType) DropNoise() bool {
	return rt != UnfilteredDEM
}

// ZColumn returns the 1-based ASCII column gridded as the cell value:
// elevation for surface types, intensity for intensity rasters.
func (rt RasterType) ZColumn() int {
	if rt == Intensity {
		return colIntensity
	}
	return colElevation
}

// IsElevation reports whether the raster holds heights that can be patched
// with a DEM or offset by a separation file.
func (rt RasterType) IsElevation() bool {
	switch rt {
	case DSM, DTM, DEM:
		return true
	}
	return false
}
