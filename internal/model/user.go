// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered user account.
//
// GitHub is the only identity provider, so the external key is the GitHub
// user ID (an integer). The internal string ID (xid) is what sessions and
// images point at; it never changes once the row exists.
//
// Name is the GitHub display name, or the login handle when the profile has
// no display name. The login callback creates a user at most once per
// GitHubID and never rewrites the row afterwards.
type User struct {
	ID        string    `json:"id"        db:"id"`
	GitHubID  int64     `json:"githubId"  db:"github_id"` // GitHub's numeric user ID
	Name      string    `json:"name"      db:"name"`
	AvatarURL string    `json:"avatarUrl" db:"avatar_url"` // Profile picture URL
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
