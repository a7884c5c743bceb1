package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"circulation/internal/models"
	"circulation/internal/repositories"
)

// ReservationService manages the single reservation slot each book carries:
// at most one pending reservation per book, second requesters are rejected
// rather than queued. Expiry, like loan overdue, is swept lazily.
type ReservationService interface {
	Request(bookID, memberID uuid.UUID, validDays int) (*models.Reservation, error)
	Fulfill(id uuid.UUID) (*models.Reservation, error)
	Cancel(id uuid.UUID) error
	ExpireOverdue() (int64, error)
	Get(id uuid.UUID) (*models.Reservation, error)
	List(status *models.ReservationStatus) ([]models.Reservation, error)
}

type reservationService struct {
	db           *gorm.DB
	books        repositories.BookRepository
	members      repositories.MemberRepository
	reservations repositories.ReservationRepository
	cfg          Config
	now          Clock
}

func NewReservationService(
	db *gorm.DB,
	books repositories.BookRepository,
	members repositories.MemberRepository,
	reservations repositories.ReservationRepository,
	cfg Config,
) ReservationService {
	return &reservationService{
		db:           db,
		books:        books,
		members:      members,
		reservations: reservations,
		cfg:          cfg,
		now:          cfg.clock(),
	}
}

// Request places a pending reservation on a book for an active member.
// Whether the book should be reservable (e.g. only while on loan) is the
// caller's policy; the engine only enforces the single-slot rule, via one
// conditional insert so concurrent requesters race atomically.
func (s *reservationService) Request(bookID, memberID uuid.UUID, validDays int) (*models.Reservation, error) {
	if validDays < s.cfg.MinReservationDays || validDays > s.cfg.MaxReservationDays {
		return nil, ErrInvalidReservationPeriod
	}

	var res *models.Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := s.now()
		// Free slots held by reservations that have already lapsed.
		if _, err := s.reservations.ExpirePending(tx, now); err != nil {
			return err
		}

		member, err := s.members.GetByID(tx, memberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotEligible
			}
			return err
		}
		if member.Status != models.MemberStatusActive {
			log.Printf("[WARN] Reservations.Request: member %s is %s, refusing reservation", memberID, member.Status)
			return ErrMemberNotEligible
		}

		if _, err := s.books.GetByID(tx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		res = &models.Reservation{
			ID:         uuid.New(),
			BookID:     bookID,
			MemberID:   memberID,
			ReservedAt: now,
			ExpiresAt:  now.AddDate(0, 0, validDays),
			Status:     models.ReservationStatusPending,
		}
		claimed, err := s.reservations.ClaimSlot(tx, res)
		if err != nil {
			// Two requesters can pass the NOT EXISTS check on snapshots that
			// cannot see each other's uncommitted insert; the partial unique
			// index on pending reservations decides the race, and the loser
			// surfaces here.
			if isUniqueViolation(err) {
				log.Printf("[WARN] Reservations.Request: book %s lost the slot race to a concurrent request", bookID)
				return ErrAlreadyReserved
			}
			return err
		}
		if !claimed {
			log.Printf("[WARN] Reservations.Request: book %s already has a pending reservation", bookID)
			return ErrAlreadyReserved
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Reservations.Request: reservation %s created for member %s / book %s, expires %s",
		res.ID, memberID, bookID, res.ExpiresAt.Format("2006-01-02"))
	return res, nil
}

// Fulfill converts a pending reservation to fulfilled and marks the book
// reserved, signaling the copy is held for pickup (distinct from borrowed).
func (s *reservationService) Fulfill(id uuid.UUID) (*models.Reservation, error) {
	var res *models.Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.reservations.ExpirePending(tx, s.now()); err != nil {
			return err
		}

		found, err := s.reservations.GetByID(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		rows, err := s.reservations.UpdateStatusFrom(tx, id,
			models.ReservationStatusPending, models.ReservationStatusFulfilled)
		if err != nil {
			return err
		}
		if rows == 0 {
			log.Printf("[WARN] Reservations.Fulfill: reservation %s is %s, not pending", id, found.Status)
			return ErrInvalidReservationState
		}

		bookRows, err := s.books.UpdateStatus(tx, found.BookID, models.BookStatusReserved)
		if err != nil {
			return err
		}
		if bookRows == 0 {
			return ErrBookNotFound
		}

		found.Status = models.ReservationStatusFulfilled
		res = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Reservations.Fulfill: reservation %s fulfilled, book %s held for pickup", res.ID, res.BookID)
	return res, nil
}

// Cancel transitions a pending reservation to cancelled. Lapsed pending
// reservations are swept to expired first, so a stale one refuses rather than
// recording a cancel. Cancelling an already-cancelled reservation is a no-op;
// fulfilled or expired ones refuse. The book's catalog status is never
// touched here.
func (s *reservationService) Cancel(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.reservations.ExpirePending(tx, s.now()); err != nil {
			return err
		}

		rows, err := s.reservations.UpdateStatusFrom(tx, id,
			models.ReservationStatusPending, models.ReservationStatusCancelled)
		if err != nil {
			return err
		}
		if rows > 0 {
			log.Printf("[INFO] Reservations.Cancel: reservation %s cancelled", id)
			return nil
		}

		res, err := s.reservations.GetByID(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		if res.Status == models.ReservationStatusCancelled {
			return nil
		}
		return ErrInvalidReservationState
	})
}

// ExpireOverdue lapses every pending reservation past its expiry instant.
// Idempotent. A book already marked reserved by an earlier fulfill is not
// reverted; that handoff belongs to the caller's workflow.
func (s *reservationService) ExpireOverdue() (int64, error) {
	rows, err := s.reservations.ExpirePending(nil, s.now())
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		log.Printf("[INFO] Reservations.ExpireOverdue: %d reservation(s) expired", rows)
	}
	return rows, nil
}

func (s *reservationService) Get(id uuid.UUID) (*models.Reservation, error) {
	if _, err := s.reservations.ExpirePending(nil, s.now()); err != nil {
		return nil, err
	}
	res, err := s.reservations.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

func (s *reservationService) List(status *models.ReservationStatus) ([]models.Reservation, error) {
	if _, err := s.reservations.ExpirePending(nil, s.now()); err != nil {
		return nil, err
	}
	return s.reservations.List(nil, status)
}
