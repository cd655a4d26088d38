package model

import "time"

type ReportStatus string

const (
	ReportStatusOpen     ReportStatus = "open"
	ReportStatusReviewed ReportStatus = "reviewed"
	ReportStatusRejected ReportStatus = "rejected"
)

// Report is filed by a member and reviewed by an administrator.
type Report struct {
	ID         string       `json:"id"`
	AuthorID   string       `json:"author_id"`
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	Status     ReportStatus `json:"status"`
	ReviewerID *string      `json:"reviewer_id,omitempty"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Notice is written by an administrator and visible to everyone.
type Notice struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is free-board member content.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ListingStatus string

const (
	ListingStatusOpen ListingStatus = "open"
	ListingStatusSold ListingStatus = "sold"
)

// Listing is a member marketplace entry. Price is stored in the smallest
// currency unit.
type Listing struct {
	ID          string        `json:"id"`
	SellerID    string        `json:"seller_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Price       int64         `json:"price"`
	Status      ListingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}
