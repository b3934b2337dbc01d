package model

import "time"

// Track represents a committed audio track in the label catalog.
type Track struct {
	ID        int64     `json:"id"`
	ReleaseID int64     `json:"releaseId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album,omitempty"`
	Position  int       `json:"position"` // Ordering within the release
	Duration  float64   `json:"duration"` // Duration in seconds
	ObjectKey string    `json:"-"`        // Storage key, not exposed in API directly
	CDNURL    string    `json:"cdnUrl"`   // Public playback URL
	State     int8      `json:"state"`    // 0=soft deleted, 1=normal
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
