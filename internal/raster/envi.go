package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HeaderPathFor locates the ENVI header for a raster file. The header is
// either alongside with the extension replaced or appended; the variant that
// exists wins, defaulting to the replaced form.
func HeaderPathFor(demPath string) string {
	replaced := strings.TrimSuffix(demPath, filepath.Ext(demPath)) + ".hdr"
	if _, err := os.Stat(replaced); err == nil {
		return replaced
	}
	appended := demPath + ".hdr"
	if _, err := os.Stat(appended); err == nil {
		return appended
	}
	return replaced
}

// SetHeaderNoData appends a data ignore value to an ENVI header and removes
// any stale .aux.xml GDAL left behind, so viewers pick the nodata up from
// the header itself.
func SetHeaderNoData(demPath string, nodata float64) error {
	hdr := HeaderPathFor(demPath)
	f, err := os.OpenFile(hdr, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ENVI header: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "data ignore value = %g\n", nodata); err != nil {
		return fmt.Errorf("writing ENVI header: %w", err)
	}

	aux := demPath + ".aux.xml"
	if _, err := os.Stat(aux); err == nil {
		if err := os.Remove(aux); err != nil {
			return fmt.Errorf("removing %s: %w", aux, err)
		}
	}
	return nil
}

// AddHeaderMetadata appends provenance comment lines to an ENVI header.
// source names where the elevations came from (e.g. "LiDAR/ASTER"), demType
// is DSM, DTM or DEM.
func AddHeaderMetadata(demPath, source, demType string) error {
	hdr := HeaderPathFor(demPath)
	f, err := os.OpenFile(hdr, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ENVI header: %w", err)
	}
	defer f.Close()

	if source != "" {
		if _, err := fmt.Fprintf(f, ";DEM Source=%s\n", source); err != nil {
			return err
		}
	}
	if demType != "" {
		if _, err := fmt.Fprintf(f, ";Type=%s\n", demType); err != nil {
			return err
		}
	}
	return nil
}

// DriverForPath maps an output extension to a GDAL driver name, defaulting
// to ENVI for unknown extensions.
func DriverForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return "GTiff"
	case ".asc":
		return "AAIGrid"
	case ".jpg", ".jpeg":
		return "JPEG"
	case ".png":
		return "PNG"
	case ".vrt":
		return "VRT"
	default:
		return "ENVI"
	}
}
