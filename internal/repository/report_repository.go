package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/persistence"
)

// ReportSort selects list ordering.
type ReportSort string

const (
	SortNewest   ReportSort = "newest"
	SortOldest   ReportSort = "oldest"
	SortPriority ReportSort = "priority"
)

// OfficerScope restricts listings to what a police officer may see: reports assigned to them
// and unassigned pending reports in their state (any state when State is empty).
type OfficerScope struct {
	OfficerID primitive.ObjectID
	State     string
}

// ReportFilter captures list and count parameters.
type ReportFilter struct {
	Reporter      *primitive.ObjectID
	AssignedTo    *primitive.ObjectID
	Officer       *OfficerScope
	Statuses      []domain.ReportStatus
	Category      domain.ReportCategory
	Priority      domain.ReportPriority
	State         string
	City          string
	Search        string
	CreatedFrom   *time.Time
	CreatedBefore *time.Time // exclusive
	Sort          ReportSort
	Limit         int
	Offset        int
}

// Transition describes an atomic lifecycle write. Change is appended to the status history
// when set; a nil Change leaves the status untouched.
type Transition struct {
	Change     *domain.StatusChange
	AssignedTo *primitive.ObjectID
	AssignedAt *time.Time
	Resolution *domain.Resolution
}

// ReportRepository encapsulates report persistence.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Report, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]domain.Report, int64, error)
	CountByStatus(ctx context.Context, filter ReportFilter) (map[domain.ReportStatus]int64, error)
	// Update writes editable content only while the stored status still equals report.Status.
	Update(ctx context.Context, report *domain.Report) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Transition(ctx context.Context, id primitive.ObjectID, expected domain.ReportStatus, t Transition) (*domain.Report, error)
	AddEvidence(ctx context.Context, id primitive.ObjectID, items ...domain.Evidence) error
	AddNote(ctx context.Context, id primitive.ObjectID, note domain.InvestigationNote) error
	AddMessage(ctx context.Context, id primitive.ObjectID, msg domain.Message) error
	RecordView(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) error
}

type reportRepository struct {
	col *mongo.Collection
}

// NewReportRepository instantiates repository.
func NewReportRepository(db *mongo.Database) ReportRepository {
	return &reportRepository{col: db.Collection(persistence.CollectionReports)}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	now := time.Now().UTC()
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = report.CreatedAt
	EnsureReportSlices(report)
	if _, err := r.col.InsertOne(ctx, report); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Report, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *reportRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.Report, error) {
	return r.findOne(ctx, bson.M{"trackingCode": strings.ToUpper(strings.TrimSpace(code))})
}

func (r *reportRepository) findOne(ctx context.Context, filter bson.M) (*domain.Report, error) {
	var report domain.Report
	if err := r.col.FindOne(ctx, filter).Decode(&report); err != nil {
		return nil, err
	}
	EnsureReportSlices(&report)
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.Report, int64, error) {
	query := buildReportQuery(filter)
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	pipeline := mongo.Pipeline{{{Key: "$match", Value: query}}}
	switch filter.Sort {
	case SortOldest:
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}})
	case SortPriority:
		pipeline = append(pipeline,
			bson.D{{Key: "$addFields", Value: bson.M{"_priorityWeight": priorityWeightExpr()}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "_priorityWeight", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
			bson.D{{Key: "$project", Value: bson.M{"_priorityWeight": 0}}},
		)
	default:
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$skip", Value: int64(offset)}},
		bson.D{{Key: "$limit", Value: int64(limit)}},
	)

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	reports := []domain.Report{}
	if err := cur.All(ctx, &reports); err != nil {
		return nil, 0, err
	}
	for i := range reports {
		EnsureReportSlices(&reports[i])
	}
	return reports, total, nil
}

func (r *reportRepository) CountByStatus(ctx context.Context, filter ReportFilter) (map[domain.ReportStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildReportQuery(filter)}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var buckets []domain.Bucket
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return StatusCounts(buckets), nil
}

func (r *reportRepository) Update(ctx context.Context, report *domain.Report) error {
	report.UpdatedAt = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": report.ID, "status": report.Status}, bson.M{"$set": bson.M{
		"title":           report.Title,
		"description":     report.Description,
		"category":        report.Category,
		"priority":        report.Priority,
		"location":        report.Location,
		"incidentDate":    report.IncidentDate,
		"estimatedAmount": report.EstimatedAmount,
		"involvedParties": report.InvolvedParties,
		"updatedAt":       report.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missReason(ctx, report.ID)
	}
	return nil
}

// missReason tells a vanished report apart from one whose status moved on.
func (r *reportRepository) missReason(ctx context.Context, id primitive.ObjectID) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrStatusConflict
	}
	return mongo.ErrNoDocuments
}

func (r *reportRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *reportRepository) Transition(ctx context.Context, id primitive.ObjectID, expected domain.ReportStatus, t Transition) (*domain.Report, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	update := bson.M{}
	if t.Change != nil {
		set["status"] = t.Change.Status
		update["$push"] = bson.M{"statusHistory": t.Change}
	}
	if t.AssignedTo != nil {
		set["assignedTo"] = *t.AssignedTo
		set["assignedAt"] = t.AssignedAt
	}
	if t.Resolution != nil {
		set["resolution"] = t.Resolution
	}
	update["$set"] = set

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var report domain.Report
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": expected}, update, opts).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missReason(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	EnsureReportSlices(&report)
	return &report, nil
}

func (r *reportRepository) AddEvidence(ctx context.Context, id primitive.ObjectID, items ...domain.Evidence) error {
	if len(items) == 0 {
		return nil
	}
	return r.push(ctx, id, "evidence", bson.M{"$each": items})
}

func (r *reportRepository) AddNote(ctx context.Context, id primitive.ObjectID, note domain.InvestigationNote) error {
	return r.push(ctx, id, "investigationNotes", note)
}

func (r *reportRepository) AddMessage(ctx context.Context, id primitive.ObjectID, msg domain.Message) error {
	return r.push(ctx, id, "messages", msg)
}

func (r *reportRepository) push(ctx context.Context, id primitive.ObjectID, field string, value any) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{field: value},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RecordView counts every view and remembers authenticated viewers once.
func (r *reportRepository) RecordView(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) error {
	update := bson.M{"$inc": bson.M{"views": 1}}
	if viewer != nil {
		update["$addToSet"] = bson.M{"viewedBy": *viewer}
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func buildReportQuery(filter ReportFilter) bson.M {
	conds := bson.A{}
	if filter.Reporter != nil {
		conds = append(conds, bson.M{"reporter": *filter.Reporter})
	}
	if filter.AssignedTo != nil {
		conds = append(conds, bson.M{"assignedTo": *filter.AssignedTo})
	}
	if filter.Officer != nil {
		open := bson.M{"assignedTo": nil, "status": domain.ReportStatusPending}
		if state := strings.TrimSpace(filter.Officer.State); state != "" {
			open["location.state"] = exactFold(state)
		}
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"assignedTo": filter.Officer.OfficerID},
			open,
		}})
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, bson.M{"status": bson.M{"$in": filter.Statuses}})
	}
	if filter.Category != "" {
		conds = append(conds, bson.M{"category": filter.Category})
	}
	if filter.Priority != "" {
		conds = append(conds, bson.M{"priority": filter.Priority})
	}
	if state := strings.TrimSpace(filter.State); state != "" {
		conds = append(conds, bson.M{"location.state": exactFold(state)})
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		conds = append(conds, bson.M{"location.city": exactFold(city)})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"trackingCode": pattern},
		}})
	}
	if filter.CreatedFrom != nil || filter.CreatedBefore != nil {
		created := bson.M{}
		if filter.CreatedFrom != nil {
			created["$gte"] = *filter.CreatedFrom
		}
		if filter.CreatedBefore != nil {
			created["$lt"] = *filter.CreatedBefore
		}
		conds = append(conds, bson.M{"createdAt": created})
	}
	if len(conds) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": conds}
}

func priorityWeightExpr() bson.M {
	branches := bson.A{}
	for _, p := range []domain.ReportPriority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent} {
		branches = append(branches, bson.M{
			"case": bson.M{"$eq": bson.A{"$priority", p}},
			"then": p.Weight(),
		})
	}
	return bson.M{"$switch": bson.M{"branches": branches, "default": 0}}
}

// EnsureReportSlices replaces nil collections so they serialize as empty arrays.
func EnsureReportSlices(report *domain.Report) {
	if report.Evidence == nil {
		report.Evidence = []domain.Evidence{}
	}
	if report.InvestigationNotes == nil {
		report.InvestigationNotes = []domain.InvestigationNote{}
	}
	if report.StatusHistory == nil {
		report.StatusHistory = []domain.StatusChange{}
	}
	if report.Messages == nil {
		report.Messages = []domain.Message{}
	}
	if report.ViewedBy == nil {
		report.ViewedBy = []primitive.ObjectID{}
	}
}

// StatusCounts turns status buckets into a map that has every status.
func StatusCounts(buckets []domain.Bucket) map[domain.ReportStatus]int64 {
	counts := make(map[domain.ReportStatus]int64, len(domain.ReportStatuses))
	for _, status := range domain.ReportStatuses {
		counts[status] = 0
	}
	for _, b := range buckets {
		counts[domain.ReportStatus(b.Key)] += b.Count
	}
	return counts
}
