package domain

import (
	"io"
	"time"
)

type Category string

const (
	CategoryUpdates Category = "updates"
	CategoryEvents  Category = "events"
	CategoryItems   Category = "items"
)

// Categories lists the meta content categories served by the site
var Categories = []Category{CategoryUpdates, CategoryEvents, CategoryItems}

// ParseCategory returns ErrInvalidCategory for names outside Categories
func ParseCategory(name string) (Category, error) {
	for _, c := range Categories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// MetaItem is one entry of a meta content list
type MetaItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// Report is an abuse report filed by a visitor
type Report struct {
	ID           string    `json:"id"`
	Reporter     string    `json:"reporter"`
	Reported     string    `json:"reported"`
	Reason       string    `json:"reason"`
	EvidenceFile *string   `json:"evidenceFile"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Evidence is an optional file attached to a report
type Evidence struct {
	FileName string
	Size     int64
	Content  io.Reader
}

// ReportInput is the visitor supplied part of a report
type ReportInput struct {
	Reporter string
	Reported string
	Reason   string
	Evidence *Evidence
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// UploadResult is returned to the client after a successful media upload
type UploadResult struct {
	URL  string    `json:"url"`
	Type MediaKind `json:"type"`
}

// ServerStatus is the upstream status document, passed through mostly untouched
type ServerStatus map[string]interface{}
