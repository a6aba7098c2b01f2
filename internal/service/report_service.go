package service

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Period is a rolling report window ending now.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
	PeriodAll     Period = "all"
)

// ParsePeriod validates a period name. Empty means weekly.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodWeekly, nil
	case PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAll:
		return Period(s), nil
	}
	return "", apperrors.NewValidationError("unknown period", map[string]any{"period": s})
}

// Since returns the window start for now, or nil for PeriodAll.
func (p Period) Since(now time.Time) *time.Time {
	var t time.Time
	switch p {
	case PeriodWeekly:
		t = now.AddDate(0, 0, -7)
	case PeriodMonthly:
		t = now.AddDate(0, -1, 0)
	case PeriodYearly:
		t = now.AddDate(-1, 0, 0)
	default:
		return nil
	}
	return &t
}

// Report counts tickets (admins) or the caller's assignments (staff).
type Report struct {
	Scope      string
	Period     Period
	From       *time.Time
	To         time.Time
	Total      int
	Open       int
	ByStatus   map[domain.TicketStatus]int
	ByCategory map[string]int
	ByPriority map[domain.Priority]int
	Windows    map[Period]int
}

// ReportService builds dashboard reports.
type ReportService struct {
	store  *repository.Store
	tables *routing.Tables
	now    func() time.Time
}

// NewReportService creates the service.
func NewReportService(store *repository.Store, tables *routing.Tables) *ReportService {
	return &ReportService{store: store, tables: tables, now: utcNow}
}

type reportRow struct {
	status    domain.TicketStatus
	category  string
	priority  domain.Priority
	createdAt time.Time
}

// Build returns the report for actor over period.
func (s *ReportService) Build(ctx context.Context, actor *domain.Account, period Period) (*Report, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var (
		rows  []reportRow
		scope string
	)
	switch {
	case actor.Role == domain.RoleAdmin:
		scope = "tickets"
		tickets, err := s.store.Tickets.List(ctx, repository.TicketFilter{})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, t := range tickets {
			rows = append(rows, reportRow{t.Status, t.Category, s.tables.PriorityFor(t.Color), t.CreatedAt})
		}
	case actor.Role.IsStaff():
		scope = "assignments"
		assignments, err := s.store.Assignments.List(ctx, repository.AssignmentFilter{AssigneeID: ptr(actor.ID)})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, a := range assignments {
			rows = append(rows, reportRow{a.Status, a.Category, a.Priority, a.CreatedAt})
		}
	default:
		return nil, apperrors.NewForbidden("reports are for admins and staff")
	}

	now := s.now()
	report := &Report{
		Scope:      scope,
		Period:     period,
		From:       period.Since(now),
		To:         now,
		ByStatus:   map[domain.TicketStatus]int{},
		ByCategory: map[string]int{},
		ByPriority: map[domain.Priority]int{},
		Windows:    map[Period]int{},
	}
	windows := []Period{PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAll}
	for _, row := range rows {
		for _, w := range windows {
			if inWindow(row.createdAt, w.Since(now)) {
				report.Windows[w]++
			}
		}
		if !inWindow(row.createdAt, report.From) {
			continue
		}
		report.Total++
		report.ByStatus[row.status]++
		report.ByCategory[row.category]++
		report.ByPriority[row.priority]++
		if row.status == domain.TicketStatusOpen {
			report.Open++
		}
	}
	return report, nil
}

func inWindow(t time.Time, since *time.Time) bool {
	return since == nil || t.After(*since)
}
