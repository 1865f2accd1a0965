package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/persistence"
)

// Dimension names a report field that analytics can group by.
type Dimension string

const (
	DimensionCategory Dimension = "category"
	DimensionStatus   Dimension = "status"
	DimensionPriority Dimension = "priority"
)

// Valid reports whether d is groupable.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionCategory, DimensionStatus, DimensionPriority:
		return true
	}
	return false
}

// DailyCounts maps a UTC day (YYYY-MM-DD) to a count.
type DailyCounts map[string]int64

// AnalyticsRepository runs read-only aggregations over reports.
type AnalyticsRepository interface {
	Overview(ctx context.Context) (*domain.AnalyticsOverview, error)
	CountBy(ctx context.Context, dimension Dimension) ([]domain.Bucket, error)
	ByLocation(ctx context.Context, limit int) ([]domain.LocationBucket, error)
	Trends(ctx context.Context, since time.Time) (created DailyCounts, resolved DailyCounts, err error)
	OfficerPerformance(ctx context.Context) ([]domain.OfficerStats, error)
}

type analyticsRepository struct {
	reports *mongo.Collection
}

// NewAnalyticsRepository instantiates repository.
func NewAnalyticsRepository(db *mongo.Database) AnalyticsRepository {
	return &analyticsRepository{reports: db.Collection(persistence.CollectionReports)}
}

type countDoc struct {
	Count int64 `bson:"count"`
}

func firstCount(docs []countDoc) int64 {
	if len(docs) == 0 {
		return 0
	}
	return docs[0].Count
}

func (r *analyticsRepository) Overview(ctx context.Context) (*domain.AnalyticsOverview, error) {
	pipeline := mongo.Pipeline{{{Key: "$facet", Value: bson.M{
		"byStatus": bson.A{
			bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
		},
		"anonymous": bson.A{
			bson.M{"$match": bson.M{"isAnonymous": true}},
			bson.M{"$count": "count"},
		},
		"unassignedPending": bson.A{
			bson.M{"$match": bson.M{"status": domain.ReportStatusPending, "assignedTo": nil}},
			bson.M{"$count": "count"},
		},
		"resolution": bson.A{
			bson.M{"$match": bson.M{"resolution.resolvedAt": bson.M{"$exists": true}}},
			bson.M{"$group": bson.M{
				"_id":   nil,
				"count": bson.M{"$sum": 1},
				"avgMs": bson.M{"$avg": bson.M{"$subtract": bson.A{"$resolution.resolvedAt", "$createdAt"}}},
			}},
		},
	}}}}

	cur, err := r.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var facets []struct {
		ByStatus          []domain.Bucket `bson:"byStatus"`
		Anonymous         []countDoc      `bson:"anonymous"`
		UnassignedPending []countDoc      `bson:"unassignedPending"`
		Resolution        []struct {
			Count int64   `bson:"count"`
			AvgMs float64 `bson:"avgMs"`
		} `bson:"resolution"`
	}
	if err := cur.All(ctx, &facets); err != nil {
		return nil, err
	}
	if len(facets) == 0 {
		return BuildOverview(nil, 0, 0, 0, 0), nil
	}
	f := facets[0]
	var resolved int64
	var avgHours float64
	if len(f.Resolution) > 0 {
		resolved = f.Resolution[0].Count
		avgHours = f.Resolution[0].AvgMs / float64(time.Hour/time.Millisecond)
	}
	return BuildOverview(f.ByStatus, firstCount(f.Anonymous), firstCount(f.UnassignedPending), resolved, avgHours), nil
}

func (r *analyticsRepository) CountBy(ctx context.Context, dimension Dimension) ([]domain.Bucket, error) {
	if !dimension.Valid() {
		return nil, fmt.Errorf("unsupported dimension %q", dimension)
	}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$" + string(dimension), "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cur, err := r.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	buckets := []domain.Bucket{}
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *analyticsRepository) ByLocation(ctx context.Context, limit int) ([]domain.LocationBucket, error) {
	if limit <= 0 {
		limit = 20
	}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"state": bson.M{"$ifNull": bson.A{"$location.state", ""}}, "city": bson.M{"$ifNull": bson.A{"$location.city", ""}}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id.state", Value: 1}, {Key: "_id.city", Value: 1}}}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$project", Value: bson.M{"_id": 0, "state": "$_id.state", "city": "$_id.city", "count": 1}}},
	}
	cur, err := r.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	buckets := []domain.LocationBucket{}
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *analyticsRepository) Trends(ctx context.Context, since time.Time) (DailyCounts, DailyCounts, error) {
	day := func(field string) bson.M {
		return bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": field, "timezone": "UTC"}}
	}
	pipeline := mongo.Pipeline{{{Key: "$facet", Value: bson.M{
		"created": bson.A{
			bson.M{"$match": bson.M{"createdAt": bson.M{"$gte": since}}},
			bson.M{"$group": bson.M{"_id": day("$createdAt"), "count": bson.M{"$sum": 1}}},
		},
		"resolved": bson.A{
			bson.M{"$match": bson.M{"resolution.resolvedAt": bson.M{"$gte": since}}},
			bson.M{"$group": bson.M{"_id": day("$resolution.resolvedAt"), "count": bson.M{"$sum": 1}}},
		},
	}}}}
	cur, err := r.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, nil, err
	}
	var facets []struct {
		Created  []domain.Bucket `bson:"created"`
		Resolved []domain.Bucket `bson:"resolved"`
	}
	if err := cur.All(ctx, &facets); err != nil {
		return nil, nil, err
	}
	created, resolved := DailyCounts{}, DailyCounts{}
	if len(facets) > 0 {
		for _, b := range facets[0].Created {
			created[b.Key] = b.Count
		}
		for _, b := range facets[0].Resolved {
			resolved[b.Key] = b.Count
		}
	}
	return created, resolved, nil
}

func (r *analyticsRepository) OfficerPerformance(ctx context.Context) ([]domain.OfficerStats, error) {
	hasResolution := bson.M{"$ifNull": bson.A{"$resolution", false}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"assignedTo": bson.M{"$ne": nil}}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$assignedTo",
			"assigned": bson.M{"$sum": 1},
			"resolved": bson.M{"$sum": bson.M{"$cond": bson.A{hasResolution, 1, 0}}},
			"avgMs": bson.M{"$avg": bson.M{"$cond": bson.A{
				hasResolution,
				bson.M{"$subtract": bson.A{"$resolution.resolvedAt", bson.M{"$ifNull": bson.A{"$assignedAt", "$createdAt"}}}},
				nil,
			}}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         persistence.CollectionUsers,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "officer",
		}}},
		{{Key: "$project", Value: bson.M{
			"name":     bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$officer.name", 0}}, ""}},
			"assigned": 1,
			"resolved": 1,
			"avgMs":    bson.M{"$ifNull": bson.A{"$avgMs", 0}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "resolved", Value: -1}, {Key: "assigned", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cur, err := r.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID       primitive.ObjectID `bson:"_id"`
		Name     string             `bson:"name"`
		Assigned int64              `bson:"assigned"`
		Resolved int64              `bson:"resolved"`
		AvgMs    float64            `bson:"avgMs"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	stats := make([]domain.OfficerStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, domain.OfficerStats{
			OfficerID:          row.ID.Hex(),
			Name:               row.Name,
			Assigned:           row.Assigned,
			Resolved:           row.Resolved,
			AvgResolutionHours: RoundTo(row.AvgMs/float64(time.Hour/time.Millisecond), 2),
		})
	}
	return stats, nil
}

// BuildOverview derives totals and rates from raw aggregation results.
func BuildOverview(byStatus []domain.Bucket, anonymous, unassignedPending, resolved int64, avgResolutionHours float64) *domain.AnalyticsOverview {
	counts := StatusCounts(byStatus)
	var total int64
	for _, n := range counts {
		total += n
	}
	overview := &domain.AnalyticsOverview{
		Total:              total,
		ByStatus:           counts,
		Anonymous:          anonymous,
		Resolved:           resolved,
		AvgResolutionHours: RoundTo(avgResolutionHours, 2),
		UnassignedPending:  unassignedPending,
	}
	if total > 0 {
		overview.ResolutionRate = RoundTo(float64(resolved)/float64(total)*100, 2)
	}
	return overview
}

// RoundTo rounds v to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
