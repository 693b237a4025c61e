package models

import "time"

// Credential is a row of the users table. Password holds a bcrypt hash, or the
// verbatim password for rows written before hashing was introduced.
type Credential struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
