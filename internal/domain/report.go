package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportStatus enumerates lifecycle states for reports.
type ReportStatus string

const (
	ReportStatusPending       ReportStatus = "pending"
	ReportStatusAssigned      ReportStatus = "assigned"
	ReportStatusInvestigating ReportStatus = "investigating"
	ReportStatusResolved      ReportStatus = "resolved"
	ReportStatusClosed        ReportStatus = "closed"
)

// ReportStatuses lists statuses in lifecycle order.
var ReportStatuses = []ReportStatus{
	ReportStatusPending,
	ReportStatusAssigned,
	ReportStatusInvestigating,
	ReportStatusResolved,
	ReportStatusClosed,
}

// Rank returns the position of s in the lifecycle, or -1 when unknown.
func (s ReportStatus) Rank() int {
	for i, candidate := range ReportStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	return s.Rank() >= 0
}

// CanTransitionTo reports whether moving from s to next goes forward.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	from, to := s.Rank(), next.Rank()
	return from >= 0 && to > from
}

// ReportCategory classifies the kind of corruption reported.
type ReportCategory string

const (
	CategoryBribery      ReportCategory = "bribery"
	CategoryEmbezzlement ReportCategory = "embezzlement"
	CategoryFraud        ReportCategory = "fraud"
	CategoryExtortion    ReportCategory = "extortion"
	CategoryNepotism     ReportCategory = "nepotism"
	CategoryAbuseOfPower ReportCategory = "abuse_of_power"
	CategoryProcurement  ReportCategory = "procurement"
	CategoryOther        ReportCategory = "other"
)

// ReportCategories lists accepted categories.
var ReportCategories = []ReportCategory{
	CategoryBribery,
	CategoryEmbezzlement,
	CategoryFraud,
	CategoryExtortion,
	CategoryNepotism,
	CategoryAbuseOfPower,
	CategoryProcurement,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c ReportCategory) Valid() bool {
	for _, candidate := range ReportCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ReportPriority enumerates urgency.
type ReportPriority string

const (
	PriorityLow    ReportPriority = "low"
	PriorityMedium ReportPriority = "medium"
	PriorityHigh   ReportPriority = "high"
	PriorityUrgent ReportPriority = "urgent"
)

// Weight orders priorities for sorting; higher is more urgent.
func (p ReportPriority) Weight() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Valid reports whether p is a known priority.
func (p ReportPriority) Valid() bool {
	return p.Weight() > 0
}

// ResolutionOutcome describes how a case ended.
type ResolutionOutcome string

const (
	OutcomeActionTaken          ResolutionOutcome = "action_taken"
	OutcomeInsufficientEvidence ResolutionOutcome = "insufficient_evidence"
	OutcomeUnfounded            ResolutionOutcome = "unfounded"
	OutcomeReferred             ResolutionOutcome = "referred"
)

// Valid reports whether o is a known outcome.
func (o ResolutionOutcome) Valid() bool {
	switch o {
	case OutcomeActionTaken, OutcomeInsufficientEvidence, OutcomeUnfounded, OutcomeReferred:
		return true
	}
	return false
}

// GeoPoint is a GeoJSON point; Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a point from latitude and longitude.
func NewGeoPoint(lat, lng float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

// ReportLocation is where the incident happened.
type ReportLocation struct {
	Address     string    `bson:"address" json:"address"`
	City        string    `bson:"city,omitempty" json:"city,omitempty"`
	State       string    `bson:"state,omitempty" json:"state,omitempty"`
	Coordinates *GeoPoint `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Evidence references an uploaded file.
type Evidence struct {
	ID           string              `bson:"id" json:"id"`
	FileName     string              `bson:"fileName" json:"fileName"`
	OriginalName string              `bson:"originalName" json:"originalName"`
	MimeType     string              `bson:"mimeType" json:"mimeType"`
	Size         int64               `bson:"size" json:"size"`
	URL          string              `bson:"url" json:"url"`
	UploadedBy   *primitive.ObjectID `bson:"uploadedBy,omitempty" json:"uploadedBy,omitempty"`
	UploadedAt   time.Time           `bson:"uploadedAt" json:"uploadedAt"`
}

// InvestigationNote is an internal note visible to police and admins.
type InvestigationNote struct {
	ID        string             `bson:"id" json:"id"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// StatusChange is one entry of the append-only status log.
type StatusChange struct {
	Status    ReportStatus        `bson:"status" json:"status"`
	ChangedBy *primitive.ObjectID `bson:"changedBy,omitempty" json:"changedBy,omitempty"`
	Comment   string              `bson:"comment,omitempty" json:"comment,omitempty"`
	ChangedAt time.Time           `bson:"changedAt" json:"changedAt"`
}

// Message is part of the conversation between reporter and investigators.
type Message struct {
	ID         string             `bson:"id" json:"id"`
	Sender     primitive.ObjectID `bson:"sender" json:"sender"`
	SenderRole Role               `bson:"senderRole" json:"senderRole"`
	Content    string             `bson:"content" json:"content"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// Resolution records the outcome of a resolved report.
type Resolution struct {
	Outcome    ResolutionOutcome  `bson:"outcome" json:"outcome"`
	Summary    string             `bson:"summary" json:"summary"`
	ResolvedBy primitive.ObjectID `bson:"resolvedBy" json:"resolvedBy"`
	ResolvedAt time.Time          `bson:"resolvedAt" json:"resolvedAt"`
}

// Report is a corruption-incident submission.
type Report struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	TrackingCode       string               `bson:"trackingCode" json:"trackingCode"`
	Title              string               `bson:"title" json:"title"`
	Description        string               `bson:"description" json:"description"`
	Category           ReportCategory       `bson:"category" json:"category"`
	Status             ReportStatus         `bson:"status" json:"status"`
	Priority           ReportPriority       `bson:"priority" json:"priority"`
	IsAnonymous        bool                 `bson:"isAnonymous" json:"isAnonymous"`
	Reporter           *primitive.ObjectID  `bson:"reporter,omitempty" json:"reporter,omitempty"`
	Location           ReportLocation       `bson:"location" json:"location"`
	IncidentDate       *time.Time           `bson:"incidentDate,omitempty" json:"incidentDate,omitempty"`
	EstimatedAmount    *float64             `bson:"estimatedAmount,omitempty" json:"estimatedAmount,omitempty"`
	InvolvedParties    []string             `bson:"involvedParties,omitempty" json:"involvedParties,omitempty"`
	Evidence           []Evidence           `bson:"evidence" json:"evidence"`
	AssignedTo         *primitive.ObjectID  `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	AssignedAt         *time.Time           `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
	InvestigationNotes []InvestigationNote  `bson:"investigationNotes" json:"investigationNotes"`
	StatusHistory      []StatusChange       `bson:"statusHistory" json:"statusHistory"`
	Messages           []Message            `bson:"messages" json:"messages"`
	Views              int64                `bson:"views" json:"views"`
	ViewedBy           []primitive.ObjectID `bson:"viewedBy" json:"-"`
	Resolution         *Resolution          `bson:"resolution,omitempty" json:"resolution,omitempty"`
	CreatedAt          time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// IsReportedBy reports whether the user filed the report under their identity.
func (r *Report) IsReportedBy(userID primitive.ObjectID) bool {
	return r.Reporter != nil && *r.Reporter == userID
}

// IsAssignedTo reports whether the report is assigned to the user.
func (r *Report) IsAssignedTo(userID primitive.ObjectID) bool {
	return r.AssignedTo != nil && *r.AssignedTo == userID
}
