package model

import "time"

// Image is one Open Graph image layout owned by a user.
//
// Elements is stored as a JSON column; list queries leave it nil so the
// response stays small.
type Image struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Elements  []Element `json:"elements,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
