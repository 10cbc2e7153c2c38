// Copyright (c) 2026 XStream Media. All rights reserved.

package schema

// CatalogVideoTable represents the 'catalog.video' table
type CatalogVideoTable struct {
	Table        string
	ID           string
	Title        string
	Slug         string
	Description  string
	EmbedURL     string
	ThumbnailURL string
	Category     string
	Exclusive    string
	Views        string
	Likes        string
	CreatedAt    string
	UpdatedAt    string
	DeletedAt    string
}

// CatalogVideo is the schema definition for catalog.video
var CatalogVideo = CatalogVideoTable{
	Table:        "catalog.video",
	ID:           "id",
	Title:        "title",
	Slug:         "slug",
	Description:  "description",
	EmbedURL:     "embedurl",
	ThumbnailURL: "thumbnailurl",
	Category:     "category",
	Exclusive:    "exclusive",
	Views:        "views",
	Likes:        "likes",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
	DeletedAt:    "deletedat",
}

// Columns returns all standard column names
func (t CatalogVideoTable) Columns() []string {
	return []string{
		t.ID, t.Title, t.Slug, t.Description, t.EmbedURL, t.ThumbnailURL, t.Category, t.Exclusive, t.Views, t.Likes, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
