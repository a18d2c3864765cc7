//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import "time"

// User is the local record of a person who has signed in through the identity provider.
// Email comes from verified claims and is the lookup key.
type User struct {
	ID          string    `db:"id"           json:"id"`
	Email       string    `db:"email"        json:"email"`
	Subject     string    `db:"subject"      json:"subject"`
	DisplayName string    `db:"display_name" json:"display_name"`
	LastLoginAt time.Time `db:"last_login_at" json:"last_login_at"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updated_at"`
}

// UpsertUserInput carries verified identity fields for creating or refreshing a user.
type UpsertUserInput struct {
	Email       string
	Subject     string
	DisplayName string
	LoginAt     time.Time
}
