package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"circulation/internal/models"
	"circulation/internal/repositories"
)

// MembershipService owns member records and their standing.
type MembershipService interface {
	Add(member *models.Member) (*models.Member, error)
	Get(id uuid.UUID) (*models.Member, error)
	List() ([]models.Member, error)
	Search(field, term string) ([]models.Member, error)
	Update(member *models.Member) (*models.Member, error)
	SetStatus(id uuid.UUID, status models.MemberStatus) error
	Remove(id uuid.UUID) error
}

type membershipService struct {
	db      *gorm.DB
	members repositories.MemberRepository
	loans   repositories.LoanRepository
	now     Clock
}

func NewMembershipService(db *gorm.DB, members repositories.MemberRepository, loans repositories.LoanRepository, cfg Config) MembershipService {
	return &membershipService{
		db:      db,
		members: members,
		loans:   loans,
		now:     cfg.clock(),
	}
}

var memberSearchColumns = map[string]string{
	"name":  "name",
	"email": "email",
	"phone": "phone",
}

func validMemberStatus(s models.MemberStatus) bool {
	switch s {
	case models.MemberStatusActive, models.MemberStatusExpired, models.MemberStatusSuspended:
		return true
	}
	return false
}

// Add enrolls a member. Email is the unique handle; a taken email fails with
// ErrDuplicateEmail.
func (s *membershipService) Add(member *models.Member) (*models.Member, error) {
	if member.Name == "" || member.Email == "" {
		return nil, ErrMissingFields
	}
	if member.Status == "" {
		member.Status = models.MemberStatusActive
	}
	if !validMemberStatus(member.Status) {
		return nil, ErrInvalidStatus
	}
	member.ID = uuid.New()
	member.JoinedAt = s.now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		count, err := s.members.CountByEmail(tx, member.Email, member.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateEmail
		}
		if err := s.members.Create(tx, member); err != nil {
			// Concurrent enrollments can both pass the count; the email
			// unique index decides, and the loser surfaces here.
			if isUniqueViolation(err) {
				return ErrDuplicateEmail
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Membership.Add: enrolled %q (id=%s)", member.Email, member.ID)
	return member, nil
}

func (s *membershipService) Get(id uuid.UUID) (*models.Member, error) {
	member, err := s.members.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

func (s *membershipService) List() ([]models.Member, error) {
	return s.members.List(nil)
}

func (s *membershipService) Search(field, term string) ([]models.Member, error) {
	column, ok := memberSearchColumns[field]
	if !ok {
		return nil, ErrInvalidSearchField
	}
	return s.members.SearchBy(nil, column, term)
}

func (s *membershipService) Update(member *models.Member) (*models.Member, error) {
	if member.Name == "" || member.Email == "" {
		return nil, ErrMissingFields
	}

	var updated *models.Member
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.members.GetByID(tx, member.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		count, err := s.members.CountByEmail(tx, member.Email, member.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateEmail
		}
		if err := s.members.Update(tx, member); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateEmail
			}
			return err
		}
		fresh, err := s.members.GetByID(tx, member.ID)
		if err != nil {
			return err
		}
		updated = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *membershipService) SetStatus(id uuid.UUID, status models.MemberStatus) error {
	if !validMemberStatus(status) {
		return ErrInvalidStatus
	}
	rows, err := s.members.UpdateStatus(nil, id, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMemberNotFound
	}
	log.Printf("[INFO] Membership.SetStatus: member %s -> %s", id, status)
	return nil
}

// Remove deletes the member unless they still own an open loan.
func (s *membershipService) Remove(id uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.members.GetByID(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		open, err := s.loans.CountOpenByMember(tx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			log.Printf("[WARN] Membership.Remove: member %s has %d open loan(s), refusing delete", id, open)
			return ErrMemberHasOpenLoans
		}
		return s.members.Delete(tx, id)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] Membership.Remove: deleted member %s", id)
	return nil
}
