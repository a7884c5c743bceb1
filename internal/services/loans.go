package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"circulation/internal/models"
	"circulation/internal/repositories"
)

// LoanService is the central lending state machine. A loan moves
// borrowed -> overdue -> returned (or borrowed -> returned); overdue is a
// derived status recomputed lazily on every read and mutation path, never by
// a background timer.
type LoanService interface {
	Issue(bookID, memberID uuid.UUID, loanDays int) (*models.Loan, error)
	Return(loanID uuid.UUID) (*models.Loan, error)
	ReturnAt(loanID uuid.UUID, returnedAt time.Time) (*models.Loan, error)
	Get(loanID uuid.UUID) (*models.Loan, error)
	List(status *models.LoanStatus) ([]models.Loan, error)
	ListByMember(memberID uuid.UUID) ([]models.Loan, error)
	PreviewFine(loanID uuid.UUID) (float64, error)
	MarkOverdueSweep() (int64, error)
}

type loanService struct {
	db      *gorm.DB
	books   repositories.BookRepository
	members repositories.MemberRepository
	loans   repositories.LoanRepository
	cfg     Config
	now     Clock
}

func NewLoanService(
	db *gorm.DB,
	books repositories.BookRepository,
	members repositories.MemberRepository,
	loans repositories.LoanRepository,
	cfg Config,
) LoanService {
	return &loanService{
		db:      db,
		books:   books,
		members: members,
		loans:   loans,
		cfg:     cfg,
		now:     cfg.clock(),
	}
}

// Issue creates a loan for an active member on an available book.
//
// The availability check and the status flip are one conditional UPDATE, so
// concurrent issues for the same book resolve to exactly one winner; the
// losers observe ErrBookNotAvailable. The whole operation runs in a single
// transaction and leaves no partial state on failure.
func (s *loanService) Issue(bookID, memberID uuid.UUID, loanDays int) (*models.Loan, error) {
	if loanDays < s.cfg.MinLoanDays || loanDays > s.cfg.MaxLoanDays {
		return nil, ErrInvalidLoanPeriod
	}

	var loan *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		member, err := s.members.GetByID(tx, memberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotEligible
			}
			return err
		}
		if member.Status != models.MemberStatusActive {
			log.Printf("[WARN] Loans.Issue: member %s is %s, refusing loan", memberID, member.Status)
			return ErrMemberNotEligible
		}

		if _, err := s.books.GetByID(tx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		rows, err := s.books.UpdateStatusFrom(tx, bookID, models.BookStatusAvailable, models.BookStatusBorrowed)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrBookNotAvailable
		}

		now := s.now()
		loan = &models.Loan{
			ID:       uuid.New(),
			BookID:   bookID,
			MemberID: memberID,
			LoanedAt: now,
			DueAt:    now.AddDate(0, 0, loanDays),
			Status:   models.LoanStatusBorrowed,
		}
		return s.loans.Create(tx, loan)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Loans.Issue: loan %s created for member %s / book %s, due %s",
		loan.ID, memberID, bookID, loan.DueAt.Format("2006-01-02"))
	return loan, nil
}

// Return closes an open loan: sets the return instant, fixes the fine from
// the calculator, and releases the book back to available. The double-return
// guard is the conditional `returned_at IS NULL` update.
func (s *loanService) Return(loanID uuid.UUID) (*models.Loan, error) {
	return s.ReturnAt(loanID, s.now())
}

func (s *loanService) ReturnAt(loanID uuid.UUID, returnedAt time.Time) (*models.Loan, error) {
	var updated *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := returnedAt
		if _, err := s.loans.MarkOverdue(tx, now); err != nil {
			return err
		}

		loan, err := s.loans.GetByID(tx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if loan.ReturnedAt != nil {
			log.Printf("[WARN] Loans.Return: loan %s already returned at %s", loanID, loan.ReturnedAt)
			return ErrLoanAlreadyReturned
		}

		fine := CalculateFine(loan.DueAt, now, s.cfg.FineRatePerDay)

		rows, err := s.loans.MarkReturned(tx, loanID, now, fine)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrLoanAlreadyReturned
		}
		if _, err := s.books.UpdateStatus(tx, loan.BookID, models.BookStatusAvailable); err != nil {
			return err
		}

		fresh, err := s.loans.GetByID(tx, loanID)
		if err != nil {
			return err
		}
		updated = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Loans.Return: loan %s returned (book=%s, member=%s, fine=%.2f)",
		updated.ID, updated.BookID, updated.MemberID, updated.FineAmount)
	return updated, nil
}

func (s *loanService) Get(loanID uuid.UUID) (*models.Loan, error) {
	if _, err := s.loans.MarkOverdue(nil, s.now()); err != nil {
		return nil, err
	}
	loan, err := s.loans.GetByID(nil, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

func (s *loanService) List(status *models.LoanStatus) ([]models.Loan, error) {
	if _, err := s.loans.MarkOverdue(nil, s.now()); err != nil {
		return nil, err
	}
	return s.loans.List(nil, status)
}

func (s *loanService) ListByMember(memberID uuid.UUID) ([]models.Loan, error) {
	if _, err := s.loans.MarkOverdue(nil, s.now()); err != nil {
		return nil, err
	}
	return s.loans.ListByMember(nil, memberID)
}

// PreviewFine reports what the fine would be if the loan were returned now.
// Nothing is persisted; fines are only fixed at actual return.
func (s *loanService) PreviewFine(loanID uuid.UUID) (float64, error) {
	loan, err := s.loans.GetByID(nil, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrLoanNotFound
		}
		return 0, err
	}
	if !loan.Open() {
		return 0, ErrLoanAlreadyReturned
	}
	return CalculateFine(loan.DueAt, s.now(), s.cfg.FineRatePerDay), nil
}

// MarkOverdueSweep reclassifies every borrowed loan past its due instant as
// overdue. Idempotent; safe to call on every read path.
func (s *loanService) MarkOverdueSweep() (int64, error) {
	rows, err := s.loans.MarkOverdue(nil, s.now())
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		log.Printf("[INFO] Loans.MarkOverdueSweep: %d loan(s) marked overdue", rows)
	}
	return rows, nil
}
