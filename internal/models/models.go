package models

import "time"

// CatalogInfo describes the loaded catalog
type CatalogInfo struct {
	Source       string    `json:"source"`
	LoadedAt     time.Time `json:"loaded_at"`
	MasterImages int       `json:"master_images"`
	Albums       int       `json:"albums"`
	Unresolved   int       `json:"unresolved"`
}

// AlbumSummary is one row of the album list
type AlbumSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Members    int    `json:"members"`
	Unresolved int    `json:"unresolved"`
}

// AlbumDetail is an album with its attributes and ordered members
type AlbumDetail struct {
	AlbumSummary
	Fields  []Field  `json:"fields"`
	Members []Member `json:"members"`
}

// Member is one KeyList entry of an album
type Member struct {
	Position int    `json:"position"`
	Key      string `json:"key"`
	Path     string `json:"path,omitempty"`
	Resolved bool   `json:"resolved"`
	Reason   string `json:"reason,omitempty"`
}

// ImageRecord is one master image
type ImageRecord struct {
	Key    string  `json:"key"`
	Fields []Field `json:"fields"`
}

// Field is one record attribute in its flat text form
type Field struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}
