// Package config loads toolkit configuration from arsf_dem.cfg files.
//
// Configuration is resolved in precedence order: a file in the current
// working directory, then a user override in the home directory, then the
// built-in defaults. Files are YAML; fields omitted from a file keep the
// value from the next layer down, so partial configs are safe.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ConfigFileName is the name looked up in the working directory.
const ConfigFileName = "arsf_dem.cfg"

// HomeConfigFileName is the name of the per-user override in $HOME.
const HomeConfigFileName = ".arsf_dem.cfg"

// Config holds toolkit settings. Pointer fields distinguish "not set" from
// an explicit zero so layers can be merged.
type Config struct {
	// Default DEM datasets used for patching lidar products.
	ASTERMosaic   *string `yaml:"aster_mosaic,omitempty"`
	NextMapMosaic *string `yaml:"nextmap_mosaic,omitempty"`
	SRTMMosaic    *string `yaml:"srtm_mosaic,omitempty"`

	// Vertical datum separation rasters.
	UKBNGSepFileWGS84    *string `yaml:"ukbng_sep_file_wgs84,omitempty"`
	UKBNGSepFileUKBNG    *string `yaml:"ukbng_sep_file_ukbng,omitempty"`
	WWGSGSepFile         *string `yaml:"wwgsg_sep_file,omitempty"`
	EGM96UKBNGSepFile    *string `yaml:"egm96_ukbng_sep_file_wgs84,omitempty"`
	EGM96UKBNGSepFileBNG *string `yaml:"egm96_ukbng_sep_file_ukbng,omitempty"`

	// OSTN02 transformation grid for accurate UKBNG reprojection. When
	// unset, UKBNG falls back to the plain transverse mercator parameters.
	OSTN02NTv2File *string `yaml:"ostn02_ntv2_file,omitempty"`

	// External tool locations. Empty values mean "resolve on PATH".
	GRASSBinary     *string `yaml:"grass_binary,omitempty"`
	LAStoolsBinDir  *string `yaml:"lastools_bin_dir,omitempty"`
	SPDLibBinDir    *string `yaml:"spdlib_bin_dir,omitempty"`
	FUSIONBinDir    *string `yaml:"fusion_bin_dir,omitempty"`
	Points2GridBin  *string `yaml:"points2grid_bin,omitempty"`
	LAStoolsLicense *bool   `yaml:"lastools_licensed,omitempty"`

	// Gridding and output defaults.
	LidarResolution   *float64 `yaml:"lidar_resolution,omitempty"`
	LidarProjection   *string  `yaml:"lidar_projection,omitempty"`
	NoiseClass        *int     `yaml:"noise_class,omitempty"`
	NodataValue       *float64 `yaml:"nodata_value,omitempty"`
	OutputFormat      *string  `yaml:"gdal_output_format,omitempty"`
	OutputDataType    *string  `yaml:"gdal_output_datatype,omitempty"`
	LidarBufferMetres *float64 `yaml:"lidar_dem_buffer_metres,omitempty"`

	// TempDir overrides the scratch directory root.
	TempDir *string `yaml:"temp_dir,omitempty"`

	// RunLogPath enables the run provenance catalog when set.
	RunLogPath *string `yaml:"runlog_path,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }

// Load resolves configuration from the standard locations: ./arsf_dem.cfg,
// then ~/.arsf_dem.cfg, then built-in defaults. The nearest layer wins per
// field.
func Load() (*Config, error) {
	cfg := &Config{}

	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, HomeConfigFileName))
	}
	paths = append([]string{ConfigFileName}, paths...)

	// Apply lower-precedence layers first so the cwd file wins.
	for i := len(paths) - 1; i >= 0; i-- {
		layer, err := LoadFile(paths[i])
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg.merge(layer)
	}

	return cfg, nil
}

// LoadFile loads a single config file. The file is validated to be under the
// max file size; a missing file returns the os.IsNotExist error unchanged so
// callers can skip optional layers.
func LoadFile(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, err
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", cleanPath, err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.LidarResolution != nil && *c.LidarResolution <= 0 {
		return fmt.Errorf("lidar_resolution must be positive, got %f", *c.LidarResolution)
	}
	if c.NoiseClass != nil && (*c.NoiseClass < 0 || *c.NoiseClass > 255) {
		return fmt.Errorf("noise_class must be a LAS class code (0-255), got %d", *c.NoiseClass)
	}
	if c.LidarBufferMetres != nil && *c.LidarBufferMetres < 0 {
		return fmt.Errorf("lidar_dem_buffer_metres must be non-negative, got %f", *c.LidarBufferMetres)
	}
	return nil
}

// merge copies set fields from layer over c.
func (c *Config) merge(layer *Config) {
	if layer.ASTERMosaic != nil {
		c.ASTERMosaic = layer.ASTERMosaic
	}
	if layer.NextMapMosaic != nil {
		c.NextMapMosaic = layer.NextMapMosaic
	}
	if layer.SRTMMosaic != nil {
		c.SRTMMosaic = layer.SRTMMosaic
	}
	if layer.UKBNGSepFileWGS84 != nil {
		c.UKBNGSepFileWGS84 = layer.UKBNGSepFileWGS84
	}
	if layer.UKBNGSepFileUKBNG != nil {
		c.UKBNGSepFileUKBNG = layer.UKBNGSepFileUKBNG
	}
	if layer.WWGSGSepFile != nil {
		c.WWGSGSepFile = layer.WWGSGSepFile
	}
	if layer.EGM96UKBNGSepFile != nil {
		c.EGM96UKBNGSepFile = layer.EGM96UKBNGSepFile
	}
	if layer.EGM96UKBNGSepFileBNG != nil {
		c.EGM96UKBNGSepFileBNG = layer.EGM96UKBNGSepFileBNG
	}
	if layer.OSTN02NTv2File != nil {
		c.OSTN02NTv2File = layer.OSTN02NTv2File
	}
	if layer.GRASSBinary != nil {
		c.GRASSBinary = layer.GRASSBinary
	}
	if layer.LAStoolsBinDir != nil {
		c.LAStoolsBinDir = layer.LAStoolsBinDir
	}
	if layer.SPDLibBinDir != nil {
		c.SPDLibBinDir = layer.SPDLibBinDir
	}
	if layer.FUSIONBinDir != nil {
		c.FUSIONBinDir = layer.FUSIONBinDir
	}
	if layer.Points2GridBin != nil {
		c.Points2GridBin = layer.Points2GridBin
	}
	if layer.LAStoolsLicense != nil {
		c.LAStoolsLicense = layer.LAStoolsLicense
	}
	if layer.LidarResolution != nil {
		c.LidarResolution = layer.LidarResolution
	}
	if layer.LidarProjection != nil {
		c.LidarProjection = layer.LidarProjection
	}
	if layer.NoiseClass != nil {
		c.NoiseClass = layer.NoiseClass
	}
	if layer.NodataValue != nil {
		c.NodataValue = layer.NodataValue
	}
	if layer.OutputFormat != nil {
		c.OutputFormat = layer.OutputFormat
	}
	if layer.OutputDataType != nil {
		c.OutputDataType = layer.OutputDataType
	}
	if layer.LidarBufferMetres != nil {
		c.LidarBufferMetres = layer.LidarBufferMetres
	}
	if layer.TempDir != nil {
		c.TempDir = layer.TempDir
	}
	if layer.RunLogPath != nil {
		c.RunLogPath = layer.RunLogPath
	}
}

// GetLidarResolution returns the gridding resolution or the 2 m default.
func (c *Config) GetLidarResolution() float64 {
	if c.LidarResolution == nil {
		return 2.0 // default
	}
	return *c.LidarResolution
}

// GetLidarProjection returns the default lidar projection name.
func (c *Config) GetLidarProjection() string {
	if c.LidarProjection == nil {
		return "UKBNG" // default
	}
	return *c.LidarProjection
}

// GetNoiseClass returns the LAS classification dropped as noise.
func (c *Config) GetNoiseClass() int {
	if c.NoiseClass == nil {
		return 7 // default
	}
	return *c.NoiseClass
}

// GetNodataValue returns the nodata value for lidar products.
func (c *Config) GetNodataValue() float64 {
	if c.NodataValue == nil {
		return 0 // default
	}
	return *c.NodataValue
}

// GetOutputFormat returns the GDAL output driver name.
func (c *Config) GetOutputFormat() string {
	if c.OutputFormat == nil {
		return "ENVI" // default
	}
	return *c.OutputFormat
}

// GetOutputDataType returns the GDAL output datatype name.
func (c *Config) GetOutputDataType() string {
	if c.OutputDataType == nil {
		return "Float32" // default
	}
	return *c.OutputDataType
}

// GetLidarBufferMetres returns the buffer applied around lidar bounds.
func (c *Config) GetLidarBufferMetres() float64 {
	if c.LidarBufferMetres == nil {
		return 2000 // default
	}
	return *c.LidarBufferMetres
}

// GetGRASSBinary returns the GRASS launcher binary.
func (c *Config) GetGRASSBinary() string {
	if c.GRASSBinary == nil {
		return "grass"
	}
	return *c.GRASSBinary
}

// GetLAStoolsLicensed reports whether a LAStools license is configured.
// Unlicensed runs still proceed but produce visible artifacts in outputs.
func (c *Config) GetLAStoolsLicensed() bool {
	if c.LAStoolsLicense == nil {
		return false
	}
	return *c.LAStoolsLicense
}

// GetTempDir returns the scratch directory root.
func (c *Config) GetTempDir() string {
	if c.TempDir == nil {
		return os.TempDir()
	}
	return *c.TempDir
}

// GetASTERMosaic returns the ASTER mosaic path, empty when not configured.
func (c *Config) GetASTERMosaic() string {
	if c.ASTERMosaic == nil {
		return ""
	}
	return *c.ASTERMosaic
}

// GetNextMapMosaic returns the NextMap mosaic path, empty when not configured.
func (c *Config) GetNextMapMosaic() string {
	if c.NextMapMosaic == nil {
		return ""
	}
	return *c.NextMapMosaic
}

// GetSRTMMosaic returns the SRTM mosaic path, empty when not configured.
func (c *Config) GetSRTMMosaic() string {
	if c.SRTMMosaic == nil {
		return ""
	}
	return *c.SRTMMosaic
}

// GetOSTN02File returns the OSTN02 grid shift file path, empty when not
// configured.
func (c *Config) GetOSTN02File() string {
	if c.OSTN02NTv2File == nil {
		return ""
	}
	return *c.OSTN02NTv2File
}

// GetRunLogPath returns the provenance catalog path, empty when disabled.
func (c *Config) GetRunLogPath() string {
	if c.RunLogPath == nil {
		return ""
	}
	return *c.RunLogPath
}
