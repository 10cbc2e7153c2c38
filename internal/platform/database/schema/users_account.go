// Copyright (c) 2026 XStream Media. All rights reserved.

package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table         string
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	DisplayName   string
	AvatarURL     string
	Role          string
	AgeVerifiedAt string
	CreatedAt     string
	UpdatedAt     string
	DeletedAt     string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:         "users.account",
	ID:            "id",
	Username:      "username",
	Email:         "email",
	PasswordHash:  "passwordhash",
	DisplayName:   "displayname",
	AvatarURL:     "avatarurl",
	Role:          "role",
	AgeVerifiedAt: "ageverifiedat",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",
	DeletedAt:     "deletedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.PasswordHash, t.DisplayName, t.AvatarURL, t.Role, t.AgeVerifiedAt, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
