package domain

import "time"

// User is an account holder. PasswordHash never leaves the service layer.
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Bio            string
	ProfilePicture string
	// Watchlist holds movie ids in insertion order when loaded.
	Watchlist []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
