package services

import (
	"time"

	"circulation/internal/models"
	"circulation/internal/repositories"
)

// DashboardStats is the read-side rollup behind the dashboard page.
type DashboardStats struct {
	TotalBooks     int64 `json:"total_books"`
	AvailableBooks int64 `json:"available_books"`
	ReservedBooks  int64 `json:"reserved_books"`
	TotalMembers   int64 `json:"total_members"`
	OpenLoans      int64 `json:"open_loans"`
}

// OverdueEntry pairs an overdue loan with the fine it would incur if
// returned now.
type OverdueEntry struct {
	Loan        models.Loan `json:"loan"`
	CurrentFine float64     `json:"current_fine"`
}

// ReportService exposes pure read-side aggregations; nothing here mutates
// circulation state beyond the lazy overdue sweep.
type ReportService interface {
	Dashboard() (*DashboardStats, error)
	OverdueReport() ([]OverdueEntry, error)
	FinesCollected(since time.Time) (float64, error)
}

type reportService struct {
	books   repositories.BookRepository
	members repositories.MemberRepository
	loans   repositories.LoanRepository
	cfg     Config
	now     Clock
}

func NewReportService(
	books repositories.BookRepository,
	members repositories.MemberRepository,
	loans repositories.LoanRepository,
	cfg Config,
) ReportService {
	return &reportService{
		books:   books,
		members: members,
		loans:   loans,
		cfg:     cfg,
		now:     cfg.clock(),
	}
}

func (s *reportService) Dashboard() (*DashboardStats, error) {
	stats := &DashboardStats{}
	var err error
	if stats.TotalBooks, err = s.books.Count(nil); err != nil {
		return nil, err
	}
	if stats.AvailableBooks, err = s.books.CountByStatus(nil, models.BookStatusAvailable); err != nil {
		return nil, err
	}
	// reserved is reported separately from borrowed on purpose; the two are
	// distinct states downstream.
	if stats.ReservedBooks, err = s.books.CountByStatus(nil, models.BookStatusReserved); err != nil {
		return nil, err
	}
	if stats.TotalMembers, err = s.members.Count(nil); err != nil {
		return nil, err
	}
	if stats.OpenLoans, err = s.loans.CountOpen(nil); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *reportService) OverdueReport() ([]OverdueEntry, error) {
	now := s.now()
	if _, err := s.loans.MarkOverdue(nil, now); err != nil {
		return nil, err
	}
	status := models.LoanStatusOverdue
	loans, err := s.loans.List(nil, &status)
	if err != nil {
		return nil, err
	}
	entries := make([]OverdueEntry, 0, len(loans))
	for _, loan := range loans {
		entries = append(entries, OverdueEntry{
			Loan:        loan,
			CurrentFine: CalculateFine(loan.DueAt, now, s.cfg.FineRatePerDay),
		})
	}
	return entries, nil
}

func (s *reportService) FinesCollected(since time.Time) (float64, error) {
	return s.loans.SumFinesReturnedSince(nil, since)
}
