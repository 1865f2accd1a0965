package domain

// Bucket is a count for one value of a dimension.
type Bucket struct {
	Key   string `bson:"_id" json:"key"`
	Count int64  `bson:"count" json:"count"`
}

// LocationBucket counts reports for a state/city pair.
type LocationBucket struct {
	State string `bson:"state" json:"state"`
	City  string `bson:"city" json:"city"`
	Count int64  `bson:"count" json:"count"`
}

// AnalyticsOverview summarizes the report collection.
type AnalyticsOverview struct {
	Total              int64                  `json:"total"`
	ByStatus           map[ReportStatus]int64 `json:"byStatus"`
	Anonymous          int64                  `json:"anonymous"`
	Resolved           int64                  `json:"resolved"`
	ResolutionRate     float64                `json:"resolutionRate"`
	AvgResolutionHours float64                `json:"avgResolutionHours"`
	UnassignedPending  int64                  `json:"unassignedPending"`
}

// TrendPoint is the created/resolved count for one day (YYYY-MM-DD, UTC).
type TrendPoint struct {
	Date     string `json:"date"`
	Created  int64  `json:"created"`
	Resolved int64  `json:"resolved"`
}

// OfficerStats aggregates caseload per assigned officer.
type OfficerStats struct {
	OfficerID          string  `bson:"_id" json:"officerId"`
	Name               string  `bson:"name" json:"name"`
	Assigned           int64   `bson:"assigned" json:"assigned"`
	Resolved           int64   `bson:"resolved" json:"resolved"`
	AvgResolutionHours float64 `bson:"avgResolutionHours" json:"avgResolutionHours"`
}
