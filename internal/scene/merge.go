package scene

import "github.com/home-designer/backend/internal/models"

// Merge builds a new document from base with every collection that patch supplies
// replaced wholesale. A nil slice or map in patch means "not supplied"; an empty one
// replaces the base collection with nothing. Elements are never merged individually.
func Merge(base, patch *models.SceneDocument) *models.SceneDocument {
	out := base.Clone()
	if patch == nil {
		return out
	}
	p := patch.Clone()
	if patch.Version != "" {
		out.Version = patch.Version
	}
	if patch.Rooms != nil {
		out.Rooms = p.Rooms
	}
	if patch.Walls != nil {
		out.Walls = p.Walls
	}
	if patch.Openings != nil {
		out.Openings = p.Openings
	}
	if patch.Objects != nil {
		out.Objects = p.Objects
	}
	if patch.Materials != nil {
		out.Materials = p.Materials
	}
	if out.Version == "" {
		out.Version = models.SceneVersion
	}
	return out
}
