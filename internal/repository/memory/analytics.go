package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/repository"
)

type analyticsRepository struct {
	s *Store
}

func (r *analyticsRepository) snapshot() []*domain.Report {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Report, 0, len(r.s.reports))
	for _, report := range r.s.reports {
		out = append(out, cloneReport(report))
	}
	return out
}

func (r *analyticsRepository) Overview(_ context.Context) (*domain.AnalyticsOverview, error) {
	var buckets []domain.Bucket
	var anonymous, unassigned, resolved int64
	var totalHours float64
	for _, report := range r.snapshot() {
		buckets = append(buckets, domain.Bucket{Key: string(report.Status), Count: 1})
		if report.IsAnonymous {
			anonymous++
		}
		if report.Status == domain.ReportStatusPending && report.AssignedTo == nil {
			unassigned++
		}
		if report.Resolution != nil {
			resolved++
			totalHours += report.Resolution.ResolvedAt.Sub(report.CreatedAt).Hours()
		}
	}
	var avg float64
	if resolved > 0 {
		avg = totalHours / float64(resolved)
	}
	return repository.BuildOverview(buckets, anonymous, unassigned, resolved, avg), nil
}

func (r *analyticsRepository) CountBy(_ context.Context, dimension repository.Dimension) ([]domain.Bucket, error) {
	if !dimension.Valid() {
		return nil, fmt.Errorf("unsupported dimension %q", dimension)
	}
	counts := map[string]int64{}
	for _, report := range r.snapshot() {
		switch dimension {
		case repository.DimensionCategory:
			counts[string(report.Category)]++
		case repository.DimensionStatus:
			counts[string(report.Status)]++
		case repository.DimensionPriority:
			counts[string(report.Priority)]++
		}
	}
	buckets := make([]domain.Bucket, 0, len(counts))
	for key, n := range counts {
		buckets = append(buckets, domain.Bucket{Key: key, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets, nil
}

func (r *analyticsRepository) ByLocation(_ context.Context, limit int) ([]domain.LocationBucket, error) {
	if limit <= 0 {
		limit = 20
	}
	type place struct{ state, city string }
	counts := map[place]int64{}
	for _, report := range r.snapshot() {
		counts[place{report.Location.State, report.Location.City}]++
	}
	buckets := make([]domain.LocationBucket, 0, len(counts))
	for p, n := range counts {
		buckets = append(buckets, domain.LocationBucket{State: p.state, City: p.city, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.State != b.State {
			return a.State < b.State
		}
		return a.City < b.City
	})
	if len(buckets) > limit {
		buckets = buckets[:limit]
	}
	return buckets, nil
}

func (r *analyticsRepository) Trends(_ context.Context, since time.Time) (repository.DailyCounts, repository.DailyCounts, error) {
	created, resolved := repository.DailyCounts{}, repository.DailyCounts{}
	for _, report := range r.snapshot() {
		if !report.CreatedAt.Before(since) {
			created[report.CreatedAt.UTC().Format(time.DateOnly)]++
		}
		if report.Resolution != nil && !report.Resolution.ResolvedAt.Before(since) {
			resolved[report.Resolution.ResolvedAt.UTC().Format(time.DateOnly)]++
		}
	}
	return created, resolved, nil
}

func (r *analyticsRepository) OfficerPerformance(_ context.Context) ([]domain.OfficerStats, error) {
	type tally struct {
		assigned, resolved int64
		hours              float64
	}
	tallies := map[primitive.ObjectID]*tally{}
	for _, report := range r.snapshot() {
		if report.AssignedTo == nil {
			continue
		}
		t, ok := tallies[*report.AssignedTo]
		if !ok {
			t = &tally{}
			tallies[*report.AssignedTo] = t
		}
		t.assigned++
		if report.Resolution != nil {
			t.resolved++
			start := report.CreatedAt
			if report.AssignedAt != nil {
				start = *report.AssignedAt
			}
			t.hours += report.Resolution.ResolvedAt.Sub(start).Hours()
		}
	}

	r.s.mu.RLock()
	stats := make([]domain.OfficerStats, 0, len(tallies))
	for id, t := range tallies {
		row := domain.OfficerStats{OfficerID: id.Hex(), Assigned: t.assigned, Resolved: t.resolved}
		if user, ok := r.s.users[id]; ok {
			row.Name = user.Name
		}
		if t.resolved > 0 {
			row.AvgResolutionHours = repository.RoundTo(t.hours/float64(t.resolved), 2)
		}
		stats = append(stats, row)
	}
	r.s.mu.RUnlock()

	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.Resolved != b.Resolved {
			return a.Resolved > b.Resolved
		}
		if a.Assigned != b.Assigned {
			return a.Assigned > b.Assigned
		}
		return a.OfficerID < b.OfficerID
	})
	return stats, nil
}
