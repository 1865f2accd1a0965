package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/repository"
)

type reportRepository struct {
	s *Store
}

func (r *reportRepository) Create(_ context.Context, report *domain.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.reports {
		if existing.TrackingCode == report.TrackingCode {
			return repository.ErrDuplicateKey
		}
	}
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.UpdatedAt = report.CreatedAt
	repository.EnsureReportSlices(report)
	r.s.reports[report.ID] = clone(report)
	return nil
}

func (r *reportRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	report, ok := r.s.reports[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return cloneReport(report), nil
}

func (r *reportRepository) GetByTrackingCode(_ context.Context, code string) (*domain.Report, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, report := range r.s.reports {
		if report.TrackingCode == code {
			return cloneReport(report), nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *reportRepository) List(_ context.Context, filter repository.ReportFilter) ([]domain.Report, int64, error) {
	matched := r.matching(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch filter.Sort {
		case repository.SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID.Hex() < b.ID.Hex()
		case repository.SortPriority:
			if a.Priority.Weight() != b.Priority.Weight() {
				return a.Priority.Weight() > b.Priority.Weight()
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.Hex() > b.ID.Hex()
	})

	start, end := window(len(matched), filter.Limit, filter.Offset)
	reports := make([]domain.Report, 0, end-start)
	for _, report := range matched[start:end] {
		reports = append(reports, *report)
	}
	return reports, int64(len(matched)), nil
}

func (r *reportRepository) CountByStatus(_ context.Context, filter repository.ReportFilter) (map[domain.ReportStatus]int64, error) {
	var buckets []domain.Bucket
	for _, report := range r.matching(filter) {
		buckets = append(buckets, domain.Bucket{Key: string(report.Status), Count: 1})
	}
	return repository.StatusCounts(buckets), nil
}

func (r *reportRepository) matching(filter repository.ReportFilter) []*domain.Report {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Report, 0, len(r.s.reports))
	for _, report := range r.s.reports {
		if matchReport(report, filter) {
			out = append(out, cloneReport(report))
		}
	}
	return out
}

func (r *reportRepository) Update(_ context.Context, report *domain.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.reports[report.ID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	if stored.Status != report.Status {
		return repository.ErrStatusConflict
	}
	stored.Title = report.Title
	stored.Description = report.Description
	stored.Category = report.Category
	stored.Priority = report.Priority
	stored.Location = report.Location
	stored.IncidentDate = report.IncidentDate
	stored.EstimatedAmount = report.EstimatedAmount
	stored.InvolvedParties = append([]string(nil), report.InvolvedParties...)
	stored.UpdatedAt = time.Now().UTC()
	report.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *reportRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reports[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(r.s.reports, id)
	return nil
}

func (r *reportRepository) Transition(_ context.Context, id primitive.ObjectID, expected domain.ReportStatus, t repository.Transition) (*domain.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.reports[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if stored.Status != expected {
		return nil, repository.ErrStatusConflict
	}
	if t.Change != nil {
		stored.Status = t.Change.Status
		stored.StatusHistory = append(stored.StatusHistory, *clone(t.Change))
	}
	if t.AssignedTo != nil {
		officer := *t.AssignedTo
		stored.AssignedTo = &officer
		if t.AssignedAt != nil {
			at := *t.AssignedAt
			stored.AssignedAt = &at
		}
	}
	if t.Resolution != nil {
		stored.Resolution = clone(t.Resolution)
	}
	stored.UpdatedAt = time.Now().UTC()
	return cloneReport(stored), nil
}

func (r *reportRepository) AddEvidence(_ context.Context, id primitive.ObjectID, items ...domain.Evidence) error {
	if len(items) == 0 {
		return nil
	}
	return r.mutate(id, func(stored *domain.Report) {
		stored.Evidence = append(stored.Evidence, items...)
	})
}

func (r *reportRepository) AddNote(_ context.Context, id primitive.ObjectID, note domain.InvestigationNote) error {
	return r.mutate(id, func(stored *domain.Report) {
		stored.InvestigationNotes = append(stored.InvestigationNotes, note)
	})
}

func (r *reportRepository) AddMessage(_ context.Context, id primitive.ObjectID, msg domain.Message) error {
	return r.mutate(id, func(stored *domain.Report) {
		stored.Messages = append(stored.Messages, msg)
	})
}

func (r *reportRepository) RecordView(_ context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.reports[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	stored.Views++
	if viewer == nil {
		return nil
	}
	for _, seen := range stored.ViewedBy {
		if seen == *viewer {
			return nil
		}
	}
	stored.ViewedBy = append(stored.ViewedBy, *viewer)
	return nil
}

func (r *reportRepository) mutate(id primitive.ObjectID, fn func(*domain.Report)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.reports[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	stored.UpdatedAt = time.Now().UTC()
	fn(stored)
	return nil
}

func cloneReport(report *domain.Report) *domain.Report {
	out := clone(report)
	repository.EnsureReportSlices(out)
	return out
}

func matchReport(report *domain.Report, filter repository.ReportFilter) bool {
	if filter.Reporter != nil && !report.IsReportedBy(*filter.Reporter) {
		return false
	}
	if filter.AssignedTo != nil && !report.IsAssignedTo(*filter.AssignedTo) {
		return false
	}
	if scope := filter.Officer; scope != nil && !report.IsAssignedTo(scope.OfficerID) {
		open := report.AssignedTo == nil && report.Status == domain.ReportStatusPending
		if state := strings.TrimSpace(scope.State); state != "" {
			open = open && strings.EqualFold(report.Location.State, state)
		}
		if !open {
			return false
		}
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if report.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Category != "" && report.Category != filter.Category {
		return false
	}
	if filter.Priority != "" && report.Priority != filter.Priority {
		return false
	}
	if state := strings.TrimSpace(filter.State); state != "" && !strings.EqualFold(report.Location.State, state) {
		return false
	}
	if city := strings.TrimSpace(filter.City); city != "" && !strings.EqualFold(report.Location.City, city) {
		return false
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		if !containsFold(report.Title, search) && !containsFold(report.Description, search) && !containsFold(report.TrackingCode, search) {
			return false
		}
	}
	if filter.CreatedFrom != nil && report.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedBefore != nil && !report.CreatedAt.Before(*filter.CreatedBefore) {
		return false
	}
	return true
}
