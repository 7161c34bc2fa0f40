package domain

import "time"

// User is a registered account. ID is a UUID string and doubles as the
// owner identifier scoping all task and conversation access.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
