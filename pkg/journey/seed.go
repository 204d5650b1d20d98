package journey

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of a stage catalog seed.
type seedFile struct {
	Stages []Stage `yaml:"stages"`
}

// LoadCatalogFromYAML reads a stage catalog seed file. This is the
// administrator-facing configuration path; at runtime the catalog is
// read-only.
func LoadCatalogFromYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog seed %s: %w", path, err)
	}
	return ParseCatalogYAML(data)
}

// ParseCatalogYAML parses a catalog seed from raw YAML bytes.
func ParseCatalogYAML(data []byte) (*Catalog, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	catalog, err := NewCatalog(seed.Stages)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog seed: %w", err)
	}
	return catalog, nil
}
