// Package config holds the runtime configuration shared by the server
// and CLI entry points. Defaults come from pkg/defaults and
// pkg/duration; a YAML file may override them, and flags override the
// file. Validate catches bad combinations before anything starts.
package config

import (
	"bytes"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/scanhive/scanhive/pkg/defaults"
)

// Config is the full runtime configuration. Zero values mean "use the
// default"; New fills them in.
type Config struct {
	// Listen is the API bind address, host:port.
	Listen string `yaml:"listen"`

	// DataDir is the base directory for scan history and artifacts.
	DataDir string `yaml:"data_dir"`

	// ArtifactDir overrides the per-scan tool output directory.
	// Empty means DataDir/artifacts.
	ArtifactDir string `yaml:"artifact_dir"`

	// WordlistDir holds static input files for fuzzing tools.
	WordlistDir string `yaml:"wordlist_dir"`

	// CatalogPath points at a YAML tool catalog overriding the
	// built-in registry. Empty means built-ins only.
	CatalogPath string `yaml:"catalog"`

	// MaxActive bounds concurrently running scans.
	MaxActive int `yaml:"max_active"`

	// StartRatePerMin is the per-client budget of scan starts.
	StartRatePerMin int `yaml:"start_rate_per_min"`

	// HistoryKeep is how many finished scans Prune retains.
	HistoryKeep int `yaml:"history_keep"`

	// OTLPEndpoint enables the OpenTelemetry hook when non-empty
	// (host:port of an OTLP gRPC collector).
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Metrics enables the Prometheus hook and /metrics endpoint.
	Metrics bool `yaml:"metrics"`

	// Verbose lowers the log level to debug.
	Verbose bool `yaml:"verbose"`

	// JSONLog switches log output from text to JSON.
	JSONLog bool `yaml:"json_log"`

	// NoColor disables styled terminal output.
	NoColor bool `yaml:"no_color"`
}

// New returns a Config with every default filled in.
func New() *Config {
	return &Config{
		Listen:          net.JoinHostPort("", strconv.Itoa(defaults.APIPort)),
		DataDir:         defaultDataDir(),
		MaxActive:       defaults.MaxActiveScans,
		StartRatePerMin: defaults.StartRatePerMin,
		HistoryKeep:     defaults.HistoryKeep,
	}
}

func defaultDataDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, defaults.ToolName)
}

// RegisterFlags binds the shared flags onto a subcommand's flag set.
// Call after New so flag defaults match the config defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Listen, "listen", c.Listen, "API bind address (host:port)")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "Base directory for history and artifacts")
	fs.StringVar(&c.ArtifactDir, "artifact-dir", c.ArtifactDir, "Tool output directory (default: data-dir/artifacts)")
	fs.StringVar(&c.WordlistDir, "wordlists", c.WordlistDir, "Directory of wordlists for fuzzing tools")
	fs.StringVar(&c.CatalogPath, "catalog", c.CatalogPath, "YAML tool catalog overriding the built-in registry")
	fs.IntVar(&c.MaxActive, "max-active", c.MaxActive, "Maximum concurrently running scans")
	fs.IntVar(&c.StartRatePerMin, "start-rate", c.StartRatePerMin, "Per-client scan starts per minute (0 disables)")
	fs.IntVar(&c.HistoryKeep, "history-keep", c.HistoryKeep, "Finished scans to retain in history")
	fs.StringVar(&c.OTLPEndpoint, "otlp", c.OTLPEndpoint, "OTLP gRPC collector endpoint (enables tracing)")
	fs.BoolVar(&c.Metrics, "metrics", c.Metrics, "Expose Prometheus metrics at /metrics")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "Debug-level logging")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "Debug-level logging (alias)")
	fs.BoolVar(&c.JSONLog, "json-log", c.JSONLog, "Log in JSON instead of text")
	fs.BoolVar(&c.NoColor, "no-color", c.NoColor, "Disable styled terminal output")
}

// LoadFile merges YAML overrides from path into c. Unknown keys are
// rejected so typos surface instead of silently defaulting.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen address", ErrMissingRequired)
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("%w: listen address %q: %v", ErrInvalidConfig, c.Listen, err)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data directory", ErrMissingRequired)
	}
	if c.MaxActive <= 0 {
		return fmt.Errorf("%w: max-active must be positive, got %d", ErrInvalidConfig, c.MaxActive)
	}
	if c.StartRatePerMin < 0 {
		return fmt.Errorf("%w: start-rate must be >= 0, got %d", ErrInvalidConfig, c.StartRatePerMin)
	}
	if c.HistoryKeep < 0 {
		return fmt.Errorf("%w: history-keep must be >= 0, got %d", ErrInvalidConfig, c.HistoryKeep)
	}
	if c.WordlistDir != "" {
		if info, err := os.Stat(c.WordlistDir); err != nil || !info.IsDir() {
			return fmt.Errorf("%w: wordlist dir %q is not a directory", ErrInvalidConfig, c.WordlistDir)
		}
	}
	return nil
}

// HistoryDir is where the scan store lives.
func (c *Config) HistoryDir() string {
	return filepath.Join(c.DataDir, defaults.HistoryDirName)
}

// Artifacts resolves the effective tool output directory.
func (c *Config) Artifacts() string {
	if c.ArtifactDir != "" {
		return c.ArtifactDir
	}
	return filepath.Join(c.DataDir, "artifacts")
}
