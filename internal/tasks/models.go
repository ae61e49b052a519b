package tasks

import "time"

// Task is a user-owned to-do record. Description is nullable to mirror the
// tasks table; the AI side process fills it in after creation.
type Task struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Completed   bool      `db:"completed" json:"completed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UserID      string    `db:"user_id" json:"user_id"`
	Description *string   `db:"description" json:"description,omitempty"`
}
