// Copyright (c) 2026 XStream Media. All rights reserved.

package schema

// CatalogCommentTable represents the 'catalog.comment' table
type CatalogCommentTable struct {
	Table     string
	ID        string
	VideoID   string
	UserID    string
	ParentID  string
	Body      string
	CreatedAt string
	UpdatedAt string
	DeletedAt string
}

// CatalogComment is the schema definition for catalog.comment
var CatalogComment = CatalogCommentTable{
	Table:     "catalog.comment",
	ID:        "id",
	VideoID:   "videoid",
	UserID:    "userid",
	ParentID:  "parentid",
	Body:      "body",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
	DeletedAt: "deletedat",
}

// Columns returns all standard column names
func (t CatalogCommentTable) Columns() []string {
	return []string{
		t.ID, t.VideoID, t.UserID, t.ParentID, t.Body, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
