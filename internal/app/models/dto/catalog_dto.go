package dto

import (
	"time"

	"github.com/yigit/musicschool/internal/app/models"
)

// CatalogVideoResponse is a catalog video with the caller's access flag
type CatalogVideoResponse struct {
	models.Video
	Unlocked bool `json:"unlocked" example:"true"`
}

// CatalogModuleResponse is a course module as seen by the caller
type CatalogModuleResponse struct {
	ID     int                    `json:"id" example:"1"`
	Title  string                 `json:"title" example:"Começando do Zero!"`
	Videos []CatalogVideoResponse `json:"videos"`
}

// PlayVideoResponse carries the link to a playable video
type PlayVideoResponse struct {
	Video models.Video `json:"video"`
	URL   string       `json:"url" example:"https://www.youtube.com/watch?v=dQw4w9WgXcQ"`
}

// SetVideoLinkRequest sets the YouTube link for a video
type SetVideoLinkRequest struct {
	URL string `json:"url" binding:"required,url" example:"https://www.youtube.com/watch?v=dQw4w9WgXcQ"`
}

// VideoLinksResponse maps video ids to links
type VideoLinksResponse struct {
	Links map[int]string `json:"links"`
}

// PurgeVideoResponse reports how many students lost access to a purged video
type PurgeVideoResponse struct {
	VideoID  int `json:"videoId" example:"203"`
	Affected int `json:"affected" example:"4"`
}

// StorageStatusResponse reports the key-value backend state
type StorageStatusResponse struct {
	Backend   string    `json:"backend" example:"redis"`
	Directory string    `json:"directory" example:"postgres"`
	Connected bool      `json:"connected" example:"true"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int64     `json:"latencyMs" example:"2"`
	CheckedAt time.Time `json:"checkedAt"`
}
