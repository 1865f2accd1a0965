package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/integrity-watch/report-service/internal/domain"
)

func TestBuildReportQuery(t *testing.T) {
	reporter := primitive.NewObjectID()
	officer := primitive.NewObjectID()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter ReportFilter
		want   bson.M
	}{
		{
			name:   "no filter matches everything",
			filter: ReportFilter{},
			want:   bson.M{},
		},
		{
			name:   "citizen scope",
			filter: ReportFilter{Reporter: &reporter},
			want:   bson.M{"$and": bson.A{bson.M{"reporter": reporter}}},
		},
		{
			name:   "officer scope in a state",
			filter: ReportFilter{Officer: &OfficerScope{OfficerID: officer, State: " Lagos "}},
			want: bson.M{"$and": bson.A{bson.M{"$or": bson.A{
				bson.M{"assignedTo": officer},
				bson.M{
					"assignedTo":     nil,
					"status":         domain.ReportStatusPending,
					"location.state": primitive.Regex{Pattern: "^Lagos$", Options: "i"},
				},
			}}}},
		},
		{
			name:   "officer scope without a state",
			filter: ReportFilter{Officer: &OfficerScope{OfficerID: officer}},
			want: bson.M{"$and": bson.A{bson.M{"$or": bson.A{
				bson.M{"assignedTo": officer},
				bson.M{"assignedTo": nil, "status": domain.ReportStatusPending},
			}}}},
		},
		{
			name: "attribute filters",
			filter: ReportFilter{
				AssignedTo: &officer,
				Statuses:   []domain.ReportStatus{domain.ReportStatusPending, domain.ReportStatusAssigned},
				Category:   domain.CategoryFraud,
				Priority:   domain.PriorityHigh,
				City:       "Ikeja",
			},
			want: bson.M{"$and": bson.A{
				bson.M{"assignedTo": officer},
				bson.M{"status": bson.M{"$in": []domain.ReportStatus{domain.ReportStatusPending, domain.ReportStatusAssigned}}},
				bson.M{"category": domain.CategoryFraud},
				bson.M{"priority": domain.PriorityHigh},
				bson.M{"location.city": primitive.Regex{Pattern: "^Ikeja$", Options: "i"}},
			}},
		},
		{
			name:   "search is literal and case-insensitive",
			filter: ReportFilter{Search: " N1.5m (cash) "},
			want: bson.M{"$and": bson.A{bson.M{"$or": bson.A{
				bson.M{"title": primitive.Regex{Pattern: `N1\.5m \(cash\)`, Options: "i"}},
				bson.M{"description": primitive.Regex{Pattern: `N1\.5m \(cash\)`, Options: "i"}},
				bson.M{"trackingCode": primitive.Regex{Pattern: `N1\.5m \(cash\)`, Options: "i"}},
			}}}},
		},
		{
			name:   "created range is half open",
			filter: ReportFilter{CreatedFrom: &from, CreatedBefore: &before},
			want:   bson.M{"$and": bson.A{bson.M{"createdAt": bson.M{"$gte": from, "$lt": before}}}},
		},
		{
			name:   "upper bound only",
			filter: ReportFilter{CreatedBefore: &before},
			want:   bson.M{"$and": bson.A{bson.M{"createdAt": bson.M{"$lt": before}}}},
		},
		{
			name:   "blank strings are ignored",
			filter: ReportFilter{State: "  ", City: "", Search: " "},
			want:   bson.M{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildReportQuery(tt.filter))
		})
	}
}

func TestPriorityWeightExpr(t *testing.T) {
	expr := priorityWeightExpr()
	sw, ok := expr["$switch"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, 0, sw["default"])

	branches, ok := sw["branches"].(bson.A)
	require.True(t, ok)
	require.Len(t, branches, 4)

	weights := map[domain.ReportPriority]any{}
	for _, raw := range branches {
		branch := raw.(bson.M)
		cond := branch["case"].(bson.M)["$eq"].(bson.A)
		require.Equal(t, "$priority", cond[0])
		weights[cond[1].(domain.ReportPriority)] = branch["then"]
	}
	assert.Equal(t, map[domain.ReportPriority]any{
		domain.PriorityLow:    1,
		domain.PriorityMedium: 2,
		domain.PriorityHigh:   3,
		domain.PriorityUrgent: 4,
	}, weights)
}

func TestStatusCounts(t *testing.T) {
	counts := StatusCounts([]domain.Bucket{
		{Key: string(domain.ReportStatusPending), Count: 3},
		{Key: string(domain.ReportStatusResolved), Count: 2},
		{Key: string(domain.ReportStatusPending), Count: 1},
	})

	require.Len(t, counts, len(domain.ReportStatuses))
	assert.EqualValues(t, 4, counts[domain.ReportStatusPending])
	assert.EqualValues(t, 2, counts[domain.ReportStatusResolved])
	assert.Zero(t, counts[domain.ReportStatusInvestigating])

	empty := StatusCounts(nil)
	for _, status := range domain.ReportStatuses {
		assert.Contains(t, empty, status)
		assert.Zero(t, empty[status])
	}
}
