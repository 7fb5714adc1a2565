package models

import (
	"context"
	"time"
)

// ReportRecord is the audit entry kept for every generated report. It never
// carries the transcript itself.
type ReportRecord struct {
	ID              string    `json:"id" db:"id"`
	SessionID       string    `json:"sessionId" db:"session_id"`
	Filename        string    `json:"filename" db:"filename"`
	CalculationType string    `json:"calculationType" db:"calculation_type"`
	Title           string    `json:"title" db:"title"`
	KeyResult       string    `json:"keyResult" db:"key_result"`
	PageCount       int       `json:"pageCount" db:"page_count"`
	ChartFailures   int       `json:"chartFailures" db:"chart_failures"`
	Source          string    `json:"source" db:"source"`
	ObjectKey       string    `json:"objectKey,omitempty" db:"object_key"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// ReportFilter narrows a report listing.
type ReportFilter struct {
	Query           string
	CalculationType string
	Size            int
}

// ReportRepository defines report audit data access.
type ReportRepository interface {
	Create(ctx context.Context, record *ReportRecord) error
	FindByID(ctx context.Context, id string) (*ReportRecord, error)
	List(ctx context.Context, filter ReportFilter) ([]*ReportRecord, error)
}
