// Package domain holds the core entities and error taxonomy shared by the
// store, tool, and agent layers.
package domain

import "time"

// Title and description limits enforced by the task tools and the REST API.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// Task is a single todo item owned by one user.
type Task struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StatusFilter selects which tasks a listing returns.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

// Valid reports whether the filter is one of the accepted values.
func (f StatusFilter) Valid() bool {
	switch f {
	case StatusAll, StatusPending, StatusCompleted:
		return true
	}
	return false
}
