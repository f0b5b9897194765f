package parser

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/home-designer/backend/internal/models"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// ErrInvalidCatalog wraps every catalog validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

// DefaultCatalog returns the built-in furniture and palette catalog.
func DefaultCatalog() *models.Catalog {
	c, err := ParseCatalogFromReader(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// ParseCatalog parses a YAML catalog file.
func ParseCatalog(filePath string) (*models.Catalog, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseCatalogFromReader(file)
}

// ParseCatalogFromReader parses and validates a catalog from an io.Reader.
func ParseCatalogFromReader(r io.Reader) (*models.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var catalog models.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	if err := ValidateCatalog(&catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// ValidateCatalog checks furniture types against the vocabulary, dimensions and
// colours.
func ValidateCatalog(c *models.Catalog) error {
	seen := make(map[models.FurnitureType]bool)
	for i, f := range c.Furniture {
		if !f.Type.Valid() {
			return fmt.Errorf("%w: furniture[%d]: unknown type %q", ErrInvalidCatalog, i, f.Type)
		}
		if seen[f.Type] {
			return fmt.Errorf("%w: furniture[%d]: duplicate type %q", ErrInvalidCatalog, i, f.Type)
		}
		seen[f.Type] = true
		if f.Width <= 0 || f.Depth <= 0 || f.Height <= 0 {
			return fmt.Errorf("%w: furniture[%d]: dimensions must be positive", ErrInvalidCatalog, i)
		}
		if f.DefaultColor != "" && !models.IsValidHexColor(f.DefaultColor) {
			return fmt.Errorf("%w: furniture[%d]: default_color %q is not #RRGGBB", ErrInvalidCatalog, i, f.DefaultColor)
		}
	}
	for name, swatches := range c.Palettes {
		for i, s := range swatches {
			if !models.IsValidHexColor(s.Color) {
				return fmt.Errorf("%w: palettes.%s[%d]: color %q is not #RRGGBB", ErrInvalidCatalog, name, i, s.Color)
			}
			if s.Material != "" && !s.Material.Valid() {
				return fmt.Errorf("%w: palettes.%s[%d]: unknown material %q", ErrInvalidCatalog, name, i, s.Material)
			}
		}
	}
	return nil
}
