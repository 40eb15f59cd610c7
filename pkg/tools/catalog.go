package tools

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scanhive/scanhive/pkg/duration"
)

// Catalog carries optional operator overrides for the built-in
// registry, loaded from a YAML file:
//
//	tools:
//	  nuclei:
//	    path: /opt/scanners/nuclei
//	    timeout: 10m
//	  zap:
//	    disabled: true
type Catalog struct {
	Tools map[string]CatalogEntry `yaml:"tools"`
}

// CatalogEntry overrides one tool. Zero-value fields leave the
// built-in descriptor untouched.
type CatalogEntry struct {
	Path     string `yaml:"path,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tools: opening catalog: %w", err)
	}
	defer f.Close()

	return ReadCatalog(f)
}

// ReadCatalog parses a catalog from a reader.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tools: reading catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("tools: parsing catalog: %w", err)
	}
	return &c, nil
}

// Apply folds catalog overrides into the registry. A name the
// registry does not know is an error rather than a silent no-op, so
// a typo in the catalog cannot quietly leave a tool unconfigured. A
// disabled entry removes the tool.
func (r *Registry) Apply(c *Catalog) error {
	if c == nil {
		return nil
	}

	names := make([]string, 0, len(c.Tools))
	for name := range c.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := c.Tools[name]
		d, ok := r.tools[name]
		if !ok {
			return fmt.Errorf("%w: %q in catalog", ErrUnknownTool, name)
		}

		if entry.Disabled {
			r.remove(name)
			continue
		}
		if entry.Path != "" {
			d.Path = entry.Path
		}
		if entry.Timeout != "" {
			t, err := time.ParseDuration(entry.Timeout)
			if err != nil {
				return fmt.Errorf("tools: catalog timeout for %q: %w", name, err)
			}
			if t <= 0 || t > duration.ToolMax {
				return fmt.Errorf("tools: catalog timeout for %q outside (0s, %s]", name, duration.ToolMax)
			}
			d.DefaultTimeout = t
		}
		r.tools[name] = d
	}
	return nil
}
