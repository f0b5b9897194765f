package models

// Catalog describes the furniture vocabulary and the material palettes offered by
// the editors. It is loaded from YAML.
type Catalog struct {
	Version   string              `json:"version" yaml:"version"`
	Furniture []FurnitureEntry    `json:"furniture" yaml:"furniture"`
	Palettes  map[string][]Swatch `json:"palettes" yaml:"palettes"`
}

// FurnitureEntry is the footprint and default finish of one furniture type.
// Dimensions are those of the renderer's model.
type FurnitureEntry struct {
	Type         FurnitureType `json:"type" yaml:"type"`
	Name         string        `json:"name" yaml:"name"`
	Category     string        `json:"category" yaml:"category"`
	Width        float64       `json:"width" yaml:"width"`
	Depth        float64       `json:"depth" yaml:"depth"`
	Height       float64       `json:"height" yaml:"height"`
	DefaultColor string        `json:"defaultColor" yaml:"default_color"`
}

// Swatch is one named colour in a palette.
type Swatch struct {
	Name     string       `json:"name" yaml:"name"`
	Color    string       `json:"color" yaml:"color"`
	Material MaterialType `json:"material,omitempty" yaml:"material,omitempty"`
}

// Lookup returns the catalog entry for a furniture type.
func (c *Catalog) Lookup(t FurnitureType) (FurnitureEntry, bool) {
	for _, f := range c.Furniture {
		if f.Type == t {
			return f, true
		}
	}
	return FurnitureEntry{}, false
}
