package journey

import (
	_ "embed"
)

//go:embed stages.yaml
var defaultSeed []byte

// DefaultCatalog returns the built-in ten-stage buyer journey (stages 0-9).
// Installations override it with their own seed file or a database-backed
// catalog; the built-in seed keeps a fresh deployment usable.
func DefaultCatalog() *Catalog {
	catalog, err := ParseCatalogYAML(defaultSeed)
	if err != nil {
		// The embedded seed is validated by tests; failing to parse it is a
		// build defect, not a runtime condition.
		panic("journey: embedded stage seed is invalid: " + err.Error())
	}
	return catalog
}
