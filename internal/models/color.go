package models

import "regexp"

// hexColorPattern matches #RRGGBB (case insensitive).
var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// IsValidHexColor reports whether color is in #RRGGBB form.
func IsValidHexColor(color string) bool {
	return hexColorPattern.MatchString(color)
}
