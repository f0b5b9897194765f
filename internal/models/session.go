package models

import "time"

// PreviewState is the state of a session's preview/commit machine.
type PreviewState string

const (
	PreviewStateClean      PreviewState = "clean"
	PreviewStatePreviewing PreviewState = "previewing"
)

// EditingSession is the externally visible summary of one editing session.
type EditingSession struct {
	ID             string       `json:"id"`
	State          PreviewState `json:"state"`
	Revision       int64        `json:"revision"`
	IsLoading      bool         `json:"isLoading"`
	LoadingMessage string       `json:"loadingMessage,omitempty"`
	Error          string       `json:"error,omitempty"`
	RoomCount      int          `json:"roomCount"`
	WallCount      int          `json:"wallCount"`
	ObjectCount    int          `json:"objectCount"`
	CreatedAt      time.Time    `json:"createdAt"`
	LastAccessed   time.Time    `json:"lastAccessed"`
}
