// Copyright (c) 2026 XStream Media. All rights reserved.

package schema

// UserFavoriteTable represents the 'users.favorite' table
type UserFavoriteTable struct {
	Table     string
	UserID    string
	VideoID   string
	CreatedAt string
}

// UserFavorite is the schema definition for users.favorite
var UserFavorite = UserFavoriteTable{
	Table:     "users.favorite",
	UserID:    "userid",
	VideoID:   "videoid",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t UserFavoriteTable) Columns() []string {
	return []string{t.UserID, t.VideoID, t.CreatedAt}
}
