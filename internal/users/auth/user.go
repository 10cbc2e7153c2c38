// Copyright (c) 2026 XStream Media. All rights reserved.

// Package auth owns account identity: registration, credentials, and the
// refresh-token session lifecycle.
//
// # Architecture
//
// Entities in this package represent the "Truth" of the system.
// They have no dependencies on outer layers (like databases, APIs, or libraries).
// This makes the core logic highly testable and resilient to technology changes.
package auth

import (
	"time"

	"github.com/xstreamhq/xstream/internal/platform/sec"
)

// User represents a registered member of the XStream platform.
//
// # Rules
//   - Username is unique and URL-safe.
//   - Email is unique and validated.
//   - PasswordHash is generated via Bcrypt exclusively via the auth [Service].
//   - AgeVerifiedAt records when the viewer confirmed they are of legal age.
//     A nil value means the confirmation gate has not been passed yet.
type User struct {
	ID            string       `json:"id"`
	Username      string       `json:"username"`
	Email         string       `json:"email"`
	PasswordHash  string       `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName   string       `json:"display_name"`
	AvatarURL     string       `json:"avatar_url,omitempty"`
	Role          sec.UserRole `json:"role"`
	AgeVerifiedAt *time.Time   `json:"age_verified_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// IsAgeVerified reports whether the account has passed the age confirmation gate.
func (u *User) IsAgeVerified() bool {
	return u.AgeVerifiedAt != nil
}

// Session represents an active refresh-token session.
//
// # Security Concept
//
// Access Tokens (JWT) are stateless and cannot be revoked easily before they
// expire. To mitigate this, XStream uses short-lived JWTs paired with
// long-lived Sessions stored in the database. When the JWT expires, the client
// uses the Session (Refresh Token) to issue a new JWT. Revoking a Session logs
// the user out globally.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the refresh token. Omitted for security.
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}
