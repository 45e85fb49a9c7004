// Package projection maps the named projections used across the toolkit
// (UKBNG, WGS84LL, UTM zones) to PROJ.4 strings and per-tool flags.
package projection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
)

// Well-known projection names.
const (
	UKBNG   = "UKBNG"
	WGS84LL = "WGS84LL"
)

// Proj4 strings for the fixed projections. UKBNG uses the OSGB transverse
// mercator parameters; the OSTN02 grid shift is appended when configured.
const (
	ukbngProj4 = "+proj=tmerc +lat_0=49 +lon_0=-2 +k=0.9996012717 +x_0=400000 +y_0=-100000 " +
		"+ellps=airy +units=m +no_defs"
	wgs84llProj4 = "+proj=longlat +datum=WGS84 +no_defs"
)

// Projection is a named spatial reference.
type Projection struct {
	Name  string
	Proj4 string

	// UTM fields, set only for UTM projections.
	UTMZone  int
	UTMSouth bool

	// GridShiftMissing is set when UKBNG was requested without an OSTN02
	// grid configured; transforms still work but are less accurate.
	GridShiftMissing bool
}

// IsUTM reports whether p is a UTM zone projection.
func (p Projection) IsUTM() bool { return p.UTMZone != 0 }

// Parse resolves a projection name. ostn02Grid is the path of the OSTN02
// NTv2 grid file, empty when not configured. Accepted names: UKBNG, WGS84LL
// and UTM zones written like UTM30N or UTM33S.
func Parse(name, ostn02Grid string) (Projection, error) {
	switch {
	case name == UKBNG:
		p := Projection{Name: UKBNG, Proj4: ukbngProj4}
		if ostn02Grid != "" {
			p.Proj4 = fmt.Sprintf("%s +nadgrids=%s", ukbngProj4, ostn02Grid)
		} else {
			p.GridShiftMissing = true
		}
		return p, nil
	case name == WGS84LL:
		return Projection{Name: WGS84LL, Proj4: wgs84llProj4}, nil
	case strings.HasPrefix(name, "UTM"):
		return parseUTM(name)
	}
	return Projection{}, demerror.NewArgumentError("unrecognised projection %q (expect UKBNG, WGS84LL or UTM<zone><N|S>)", name)
}

func parseUTM(name string) (Projection, error) {
	spec := strings.TrimPrefix(name, "UTM")
	if len(spec) < 2 {
		return Projection{}, demerror.NewArgumentError("malformed UTM projection %q", name)
	}

	hemisphere := spec[len(spec)-1]
	zone, err := strconv.Atoi(spec[:len(spec)-1])
	if err != nil || zone < 1 || zone > 60 {
		return Projection{}, demerror.NewArgumentError("malformed UTM zone in %q", name)
	}

	p := Projection{Name: name, UTMZone: zone}
	switch hemisphere {
	case 'N':
		p.Proj4 = fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", zone)
	case 'S':
		p.UTMSouth = true
		p.Proj4 = fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", zone)
	default:
		return Projection{}, demerror.NewArgumentError("malformed UTM hemisphere in %q (expect N or S)", name)
	}
	return p, nil
}

// LAStoolsFlags returns the projection flags understood by the LAStools
// gridding programs. Only UTM zones can be expressed; other projections are
// an argument error for the LAStools backend.
func (p Projection) LAStoolsFlags() ([]string, error) {
	if !p.IsUTM() {
		return nil, demerror.NewArgumentError("LAStools only supports UTM projections, not %s", p.Name)
	}
	hemisphere := "N"
	if p.UTMSouth {
		hemisphere = "S"
	}
	return []string{"-utm", fmt.Sprintf("%d%s", p.UTMZone, hemisphere)}, nil
}

// LocationName returns a name for a GRASS location in this projection.
func (p Projection) LocationName() string {
	return strings.ToLower(p.Name)
}

// IsLatLong reports whether coordinates are geographic degrees.
func (p Projection) IsLatLong() bool { return p.Name == WGS84LL }
