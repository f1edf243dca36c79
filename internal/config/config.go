// Package config holds the process configuration of signcapture.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvHTTPAddr      = "SIGNCAPTURE_HTTP_ADDR"
	EnvDatasetDir    = "SIGNCAPTURE_DATASET_DIR"
	EnvSigns         = "SIGNCAPTURE_SIGNS"
	EnvLabelsFile    = "SIGNCAPTURE_LABELS_FILE"
	EnvMetadataFile  = "SIGNCAPTURE_METADATA_FILE"
	EnvCatalogDB     = "SIGNCAPTURE_CATALOG_DB"
	EnvMaxHands      = "SIGNCAPTURE_MAX_HANDS"
	EnvMinConfidence = "SIGNCAPTURE_MIN_CONFIDENCE"
	EnvMarkerRadius  = "SIGNCAPTURE_MARKER_RADIUS"
	EnvJPEGQuality   = "SIGNCAPTURE_JPEG_QUALITY"
	EnvMaxBodyBytes  = "SIGNCAPTURE_MAX_BODY_BYTES"
	EnvTray          = "SIGNCAPTURE_TRAY"
)

// DefaultSigns is the vocabulary used when none is configured.
var DefaultSigns = []string{"hello", "thank_you", "please", "yes", "no"}

// Config holds the application configuration. Relative file names are
// resolved against DatasetDir.
type Config struct {
	HTTPAddr     string
	DatasetDir   string
	Signs        []string
	LabelsFile   string
	MetadataFile string
	CatalogDB    string

	MaxHands      int
	MinConfidence float64
	MarkerRadius  int
	JPEGQuality   int

	MaxBodyBytes int64
	Tray         bool
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		HTTPAddr:      ":5000",
		DatasetDir:    "dataset",
		Signs:         append([]string(nil), DefaultSigns...),
		LabelsFile:    "labels.json",
		MetadataFile:  "metadata.csv",
		CatalogDB:     "catalog.db",
		MaxHands:      2,
		MinConfidence: 0.5,
		MarkerRadius:  5,
		JPEGQuality:   95,
		MaxBodyBytes:  64 << 20,
	}
}

// FromEnv returns the defaults overridden by SIGNCAPTURE_* variables. A .env
// file in the working directory is loaded first if present.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (*Config, error) {
	c := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvHTTPAddr, &c.HTTPAddr)
	str(EnvDatasetDir, &c.DatasetDir)
	str(EnvLabelsFile, &c.LabelsFile)
	str(EnvMetadataFile, &c.MetadataFile)
	str(EnvCatalogDB, &c.CatalogDB)

	if v, ok := lookup(EnvSigns); ok && v != "" {
		c.Signs = ParseSigns(v)
	}

	var err error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = n
		}
	}
	num(EnvMaxHands, &c.MaxHands)
	num(EnvMarkerRadius, &c.MarkerRadius)
	num(EnvJPEGQuality, &c.JPEGQuality)

	if v, ok := lookup(EnvMinConfidence); ok && v != "" && err == nil {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			err = fmt.Errorf("%s: %w", EnvMinConfidence, perr)
		}
		c.MinConfidence = f
	}
	if v, ok := lookup(EnvMaxBodyBytes); ok && v != "" && err == nil {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			err = fmt.Errorf("%s: %w", EnvMaxBodyBytes, perr)
		}
		c.MaxBodyBytes = n
	}
	if v, ok := lookup(EnvTray); ok && v != "" && err == nil {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			err = fmt.Errorf("%s: %w", EnvTray, perr)
		}
		c.Tray = b
	}

	if err != nil {
		return nil, err
	}
	return c, nil
}

// ParseSigns splits a comma-separated vocabulary, dropping blanks.
func ParseSigns(s string) []string {
	var signs []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			signs = append(signs, part)
		}
	}
	return signs
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DatasetDir == "" {
		return fmt.Errorf("dataset directory must be set")
	}
	if len(c.Signs) == 0 {
		return fmt.Errorf("at least one sign is required")
	}
	seen := make(map[string]bool, len(c.Signs))
	for _, s := range c.Signs {
		if seen[s] {
			return fmt.Errorf("sign %q is listed twice", s)
		}
		seen[s] = true
	}
	if c.MaxHands < 1 {
		return fmt.Errorf("max hands must be at least 1")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0 and 1")
	}
	if c.MarkerRadius < 1 {
		return fmt.Errorf("marker radius must be at least 1")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}
	return nil
}

// LabelsPath returns the label registry location.
func (c *Config) LabelsPath() string { return c.resolve(c.LabelsFile) }

// MetadataPath returns the metadata ledger location.
func (c *Config) MetadataPath() string { return c.resolve(c.MetadataFile) }

// CatalogPath returns the sample catalog database location.
func (c *Config) CatalogPath() string { return c.resolve(c.CatalogDB) }

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DatasetDir, name)
}
