// Package config locates the eccodes BUFR definition files.
//
// Values are layered, lowest precedence first: built-in defaults, an optional
// YAML file, environment variables, then explicit overrides (CLI flags).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lemonberrylabs/bufr-resolve/pkg/tables"
	"github.com/lemonberrylabs/bufr-resolve/pkg/types"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultCodesVersion   = "2.41.0"
	DefaultWMOTableNumber = "37"
)

// Environment variables.
const (
	EnvDefinitionPath = "ECCODES_DEFINITION_PATH"
	EnvCodesVersion   = "ECCODES_VERSION"
	EnvWMOTableNumber = "WMO_TABLE_NUMBER"
	EnvConfigFile     = "BUFR_RESOLVE_CONFIG"
)

// Relative locations of the tables under <root>/<table number>/.
const (
	sequenceFileName = "sequence.def"
	elementFileName  = "element.table"
	centreFileName   = "codetables/1033.table"
)

// Config holds the resolved table locations.
type Config struct {
	CodesVersion   string `yaml:"codes_version" json:"codes_version"`
	WMOTableNumber string `yaml:"wmo_table_number" json:"wmo_table_number"`
	DefinitionPath string `yaml:"definition_path" json:"root_path"`
	SequenceFile   string `yaml:"sequence_file" json:"sequence_file"`
	ElementFile    string `yaml:"element_file" json:"element_file"`
	CentreFile     string `yaml:"centre_file" json:"centre_file"`
}

// Overrides are explicit values, normally from CLI flags. Empty fields are
// ignored.
type Overrides struct {
	ConfigFile     string
	DefinitionPath string
	CodesVersion   string
	WMOTableNumber string
	SequenceFile   string
	ElementFile    string
	CentreFile     string
}

// Loader resolves a Config. The hooks exist so tests can fake the
// environment and the filesystem.
type Loader struct {
	Getenv func(string) string
	Exists func(string) bool
	Getwd  func() (string, error)
}

// NewLoader returns a loader bound to the real process environment.
func NewLoader() *Loader {
	return &Loader{
		Getenv: os.Getenv,
		Exists: func(p string) bool {
			_, err := os.Stat(p)
			return err == nil
		},
		Getwd: os.Getwd,
	}
}

// Load resolves the configuration with the process environment.
func Load(o Overrides) (*Config, error) {
	return NewLoader().Load(o)
}

// Load resolves the configuration. It does not check that the table files
// exist; call Validate for that.
func (l *Loader) Load(o Overrides) (*Config, error) {
	cfg := &Config{
		CodesVersion:   DefaultCodesVersion,
		WMOTableNumber: DefaultWMOTableNumber,
	}

	file := firstNonEmpty(o.ConfigFile, l.Getenv(EnvConfigFile))
	if file != "" {
		if err := cfg.mergeFile(file); err != nil {
			return nil, err
		}
	}

	cfg.DefinitionPath = firstNonEmpty(o.DefinitionPath, l.Getenv(EnvDefinitionPath), cfg.DefinitionPath)
	cfg.CodesVersion = firstNonEmpty(o.CodesVersion, l.Getenv(EnvCodesVersion), cfg.CodesVersion)
	cfg.WMOTableNumber = firstNonEmpty(o.WMOTableNumber, l.Getenv(EnvWMOTableNumber), cfg.WMOTableNumber)

	if cfg.DefinitionPath == "" {
		root, err := l.discoverRoot(cfg.CodesVersion)
		if err != nil {
			return nil, err
		}
		cfg.DefinitionPath = root
	}

	cfg.SequenceFile = firstNonEmpty(o.SequenceFile, cfg.SequenceFile, cfg.tablePath(sequenceFileName))
	cfg.ElementFile = firstNonEmpty(o.ElementFile, cfg.ElementFile, cfg.tablePath(elementFileName))
	cfg.CentreFile = firstNonEmpty(o.CentreFile, cfg.CentreFile, cfg.tablePath(centreFileName))

	return cfg, nil
}

// mergeFile overlays the non-empty values of a YAML config file.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", types.NewInputError(path, err))
	}

	var fc Config
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	c.DefinitionPath = firstNonEmpty(fc.DefinitionPath, c.DefinitionPath)
	c.CodesVersion = firstNonEmpty(fc.CodesVersion, c.CodesVersion)
	c.WMOTableNumber = firstNonEmpty(fc.WMOTableNumber, c.WMOTableNumber)
	c.SequenceFile = firstNonEmpty(fc.SequenceFile, c.SequenceFile)
	c.ElementFile = firstNonEmpty(fc.ElementFile, c.ElementFile)
	c.CentreFile = firstNonEmpty(fc.CentreFile, c.CentreFile)
	return nil
}

// discoverRoot picks the definitions root of a common eccodes install:
// Homebrew on macOS, the distribution package on Linux, else the working
// directory (which then fails validation unless the tables live there).
func (l *Loader) discoverRoot(codesVersion string) (string, error) {
	if l.Exists("/opt/homebrew") {
		return filepath.Join("/opt/homebrew/Cellar/eccodes", codesVersion,
			"share/eccodes/definitions/bufr/tables/0/wmo"), nil
	}
	if l.Exists("/usr/share/eccodes") {
		return "/usr/share/eccodes/definitions/bufr/tables/0/wmo", nil
	}
	wd, err := l.Getwd()
	if err != nil {
		return "", fmt.Errorf("determining working directory: %w", err)
	}
	return wd, nil
}

func (c *Config) tablePath(rel string) string {
	return filepath.Join(c.DefinitionPath, c.WMOTableNumber, filepath.FromSlash(rel))
}

// Validate checks that every table file exists.
func (c *Config) Validate() error {
	for _, p := range []string{c.SequenceFile, c.ElementFile, c.CentreFile} {
		if _, err := os.Stat(p); err != nil {
			e := types.NewInputError(p, err)
			e.Hint = "Is eccodes installed?"
			return e
		}
	}
	return nil
}

// Paths returns the table locations for a tables.Reader.
func (c *Config) Paths() tables.Paths {
	return tables.Paths{
		Sequence: c.SequenceFile,
		Element:  c.ElementFile,
		Centre:   c.CentreFile,
	}
}

// ToMap returns the configuration for display.
func (c *Config) ToMap() map[string]string {
	return map[string]string{
		"codes_version":    c.CodesVersion,
		"wmo_table_number": c.WMOTableNumber,
		"root_path":        c.DefinitionPath,
		"sequence_file":    c.SequenceFile,
		"element_file":     c.ElementFile,
		"centre_file":      c.CentreFile,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
