package service

import (
	"strings"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/repository"
)

// CanViewReport applies the per-role visibility rules used by listings and the websocket room join.
func CanViewReport(actor *domain.User, report *domain.Report) bool {
	if actor == nil || report == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RolePolice:
		if !actor.CanActAsPolice() {
			return false
		}
		if report.IsAssignedTo(actor.ID) {
			return true
		}
		return report.AssignedTo == nil &&
			report.Status == domain.ReportStatusPending &&
			inJurisdiction(actor, report)
	default:
		return report.IsReportedBy(actor.ID)
	}
}

func inJurisdiction(officer *domain.User, report *domain.Report) bool {
	state := strings.TrimSpace(officer.Location.State)
	return state == "" || strings.EqualFold(state, strings.TrimSpace(report.Location.State))
}

// isInvestigator reports whether actor may run the investigation on report.
func isInvestigator(actor *domain.User, report *domain.Report) bool {
	if actor == nil {
		return false
	}
	if actor.Role == domain.RoleAdmin {
		return actor.IsActive
	}
	return actor.Role == domain.RolePolice && actor.CanActAsPolice() && report.IsAssignedTo(actor.ID)
}

// canParticipate covers the reporter and the investigators.
func canParticipate(actor *domain.User, report *domain.Report) bool {
	return isInvestigator(actor, report) || (actor != nil && report.IsReportedBy(actor.ID))
}

func isStaff(actor *domain.User) bool {
	return actor != nil && (actor.Role == domain.RoleAdmin || actor.Role == domain.RolePolice)
}

// scopeFilter restricts a listing to what actor may see.
func scopeFilter(actor *domain.User, filter *repository.ReportFilter) {
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RolePolice:
		filter.Officer = &repository.OfficerScope{OfficerID: actor.ID, State: actor.Location.State}
	default:
		id := actor.ID
		filter.Reporter = &id
	}
}

// redact removes what the caller is not allowed to read.
func redact(actor *domain.User, report *domain.Report) *domain.Report {
	if !isStaff(actor) {
		report.InvestigationNotes = []domain.InvestigationNote{}
	}
	if report.IsAnonymous {
		report.Reporter = nil
	}
	return report
}
