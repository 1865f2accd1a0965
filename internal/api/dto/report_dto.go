package dto

import (
	"time"

	"github.com/integrity-watch/report-service/internal/domain"
)

// ReportLocationRequest is where an incident happened.
type ReportLocationRequest struct {
	Address   string   `json:"address" validate:"required,notblank,max=300"`
	City      string   `json:"city" validate:"max=100"`
	State     string   `json:"state" validate:"max=100"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// ToDomain converts the payload. Coordinates are kept only when both are present.
func (l ReportLocationRequest) ToDomain() domain.ReportLocation {
	loc := domain.ReportLocation{Address: l.Address, City: l.City, State: l.State}
	if l.Latitude != nil && l.Longitude != nil {
		loc.Coordinates = domain.NewGeoPoint(*l.Latitude, *l.Longitude)
	}
	return loc
}

// CreateReportRequest payload for a new report. Multipart submissions send location and
// involvedParties as JSON-encoded form fields.
type CreateReportRequest struct {
	Title           string                `json:"title" validate:"required,min=10,max=200"`
	Description     string                `json:"description" validate:"required,min=20,max=5000"`
	Category        string                `json:"category" validate:"required,report_category"`
	Priority        string                `json:"priority" validate:"omitempty,report_priority"`
	IsAnonymous     bool                  `json:"isAnonymous"`
	Location        ReportLocationRequest `json:"location"`
	IncidentDate    *time.Time            `json:"incidentDate"`
	EstimatedAmount *float64              `json:"estimatedAmount" validate:"omitempty,gte=0"`
	InvolvedParties []string              `json:"involvedParties" validate:"omitempty,max=20,dive,max=200"`
}

// UpdateReportRequest patches a report; omitted fields stay unchanged.
type UpdateReportRequest struct {
	Title           *string                `json:"title" validate:"omitempty,min=10,max=200"`
	Description     *string                `json:"description" validate:"omitempty,min=20,max=5000"`
	Category        *string                `json:"category" validate:"omitempty,report_category"`
	Priority        *string                `json:"priority" validate:"omitempty,report_priority"`
	Location        *ReportLocationRequest `json:"location"`
	IncidentDate    *time.Time             `json:"incidentDate"`
	EstimatedAmount *float64               `json:"estimatedAmount" validate:"omitempty,gte=0"`
	InvolvedParties []string               `json:"involvedParties" validate:"omitempty,max=20,dive,max=200"`
}

// UpdateStatusRequest moves a report forward.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,report_status"`
	Comment string `json:"comment" validate:"max=2000"`
}

// AssignRequest hands a report to an officer.
type AssignRequest struct {
	OfficerID string `json:"officerId" validate:"required,len=24,hexadecimal"`
}

// ResolveRequest closes the investigation.
type ResolveRequest struct {
	Outcome string `json:"outcome" validate:"required,resolution_outcome"`
	Summary string `json:"summary" validate:"required,notblank,max=2000"`
}

// ContentRequest carries a note or a message.
type ContentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=2000"`
}

// Meta describes one page of a listing.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewMeta computes the page count.
func NewMeta(page, limit int, total int64) Meta {
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Meta{Page: page, Limit: limit, Total: total, Pages: pages}
}
