package reports

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no report has the requested id.
var ErrNotFound = errors.New("reports: not found")

// Report is a free-form note owned by one user.
type Report struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateInput is the body of POST /reports.
type CreateInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=20000"`
}

// UpdateInput is the body of PUT /reports/{id}. An empty title and a nil
// content keep the stored values.
type UpdateInput struct {
	Title   string  `json:"title" validate:"max=200"`
	Content *string `json:"content" validate:"omitempty,max=20000"`
}
