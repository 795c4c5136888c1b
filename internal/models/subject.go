package models

import "time"

// Subject is the common shape shared by class groups, courses and
// mentorships: the things a member can enroll into.
type Subject struct {
	ID          string      `db:"id" json:"id"`
	Kind        SubjectKind `db:"-" json:"kind"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	Price       float64     `db:"price" json:"price"`
	Capacity    int         `db:"capacity" json:"capacity"`
	Published   bool        `db:"published" json:"published"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// SubjectSummary adds occupancy (confirmed enrollment count) for catalog
// listings and capacity displays.
type SubjectSummary struct {
	Subject
	Occupancy int `db:"occupancy" json:"occupancy"`
}

// Lesson belongs to a course. Lessons flagged free_preview are served
// without an enrollment check.
type Lesson struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content,omitempty"`
	Position    int       `db:"position" json:"position"`
	FreePreview bool      `db:"free_preview" json:"free_preview"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SubjectFilter narrows catalog listings.
type SubjectFilter struct {
	Search        string
	PublishedOnly bool
	Page          int
	PageSize      int
}
