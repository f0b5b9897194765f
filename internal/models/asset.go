package models

import "time"

// AssetInfo represents metadata about an uploaded image (floor plan, reference photo,
// material texture).
type AssetInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
