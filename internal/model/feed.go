package model

import (
	"time"
)

// Feed represents a subscribed content source.
type Feed struct {
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	CategoryID    *int64     `json:"category_id,omitempty"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	SiteURL       string     `json:"site_url"`
	ID            int64      `json:"id"`
}
