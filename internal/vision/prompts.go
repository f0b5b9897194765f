package vision

import (
	"fmt"
	"strings"

	"github.com/home-designer/backend/internal/models"
)

const classifyPrompt = `You are an image classifier for a home design application.
Classify the image into exactly one category:
- floor_plan: Architectural floor plans, blueprints, 2D layouts
- furniture: Photos of furniture items (sofas, tables, chairs)
- material: Textures, materials, color swatches, fabrics
- room_photo: Photos of actual rooms or interior spaces
- other: Anything else

Respond with JSON only: {"type": "<category>", "confidence": <0.0-1.0>, "details": "<brief description>"}`

const floorPlanPrompt = `You are a floor plan analyzer that converts 2D floor plans into 3D scene data.

Analyze the floor plan image and extract:
1. All rooms with their names and approximate dimensions
2. Wall positions forming the room boundaries
3. Door and window locations

Output a JSON object with:
- preview: Quick summary for user confirmation ({"roomCount": number, "totalSqFt": number, "rooms": [names]})
- sceneDsl: Structured data for 3D rendering ({"version", "rooms", "walls", "openings"})

Rooms are {"id", "name", "bounds": [[x1, z1], [x2, z2]], "height"}.
Walls are {"id", "from": [x, z], "to": [x, z], "height", "thickness"}.
Openings are {"id", "wallId", "type": "door" | "window", "position": 0.0-1.0 along the wall, "width"}.

For coordinates, use a normalized grid where 1 unit = 1 foot.
Place the floor plan with bottom-left corner at origin (0,0).
Default wall height is %g feet, thickness is %g feet.

Be thorough but approximate - we need a buildable 3D model, not exact CAD measurements.`

const floorPlanInstruction = "Analyze this floor plan and generate the Scene DSL:"

const commandPrompt = `You are a 3D scene editor for a home design application.

Given the current scene state and a user command, generate operations to modify the scene.

Available operations:
- add_object: { action: "add_object", type: string, position: [x, y, z], rotation: number }
- remove_object: { action: "remove_object", objectId: string }
- update_material: { action: "update_material", surfaceId: string, material: { type: string, color?: string, texture?: string } }
- add_wall: { action: "add_wall", from: [x, z], to: [x, z], height: number }
- add_room: { action: "add_room", name: string, bounds: [[x1, z1], [x2, z2]], height: number }

Furniture types available: %s

Material types: %s

Respond with JSON:
{
  "explanation": "Brief description of what will change",
  "operations": [array of operations]
}`

// FloorPlanSystemPrompt renders the floor-plan prompt with the scene defaults.
func FloorPlanSystemPrompt() string {
	return fmt.Sprintf(floorPlanPrompt, models.DefaultWallHeight, models.DefaultWallThickness)
}

// CommandSystemPrompt renders the command prompt. The furniture vocabulary comes
// from the catalog when one is given.
func CommandSystemPrompt(catalog *models.Catalog) string {
	var furniture []string
	if catalog != nil && len(catalog.Furniture) > 0 {
		for _, f := range catalog.Furniture {
			furniture = append(furniture, string(f.Type))
		}
	} else {
		for _, ft := range models.FurnitureTypes {
			furniture = append(furniture, string(ft))
		}
	}
	materials := make([]string, 0, len(models.MaterialTypes))
	for _, mt := range models.MaterialTypes {
		materials = append(materials, string(mt))
	}
	return fmt.Sprintf(commandPrompt, strings.Join(furniture, ", "), strings.Join(materials, ", "))
}

// ImageURL turns raw base64 into a data URL; data URLs pass through unchanged.
func ImageURL(image string) string {
	if strings.HasPrefix(image, "data:") {
		return image
	}
	return "data:image/jpeg;base64," + image
}
