package domain

import "time"

// User is an authenticated account.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // stored hash, never serialized
	CreatedAt time.Time `json:"createdAt"`
}
