package models

import (
	"time"

	"github.com/google/uuid"
)

type BookStatus string

const (
	BookStatusAvailable BookStatus = "available"
	BookStatusBorrowed  BookStatus = "borrowed"
	BookStatusReserved  BookStatus = "reserved"
	BookStatusLost      BookStatus = "lost"
)

type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "active"
	MemberStatusExpired   MemberStatus = "expired"
	MemberStatusSuspended MemberStatus = "suspended"
)

type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "borrowed"
	LoanStatusOverdue  LoanStatus = "overdue"
	LoanStatusReturned LoanStatus = "returned"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

type Book struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Author          string     `gorm:"size:255;not null" json:"author"`
	ISBN            string     `gorm:"size:20;index" json:"isbn,omitempty"`
	PublicationYear int        `json:"publication_year"`
	Category        string     `gorm:"size:100;index" json:"category"`
	ShelfLocation   string     `gorm:"size:50" json:"shelf_location"`
	Status          BookStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
}

type Member struct {
	ID       uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string       `gorm:"size:255;not null" json:"name"`
	Email    string       `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone    string       `gorm:"size:50" json:"phone"`
	Address  string       `gorm:"size:500" json:"address"`
	Status   MemberStatus `gorm:"size:20;not null;index" json:"status"`
	JoinedAt time.Time    `gorm:"not null" json:"joined_at"`
}

type Loan struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	MemberID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"member_id"`
	LoanedAt   time.Time  `gorm:"not null" json:"loaned_at"`
	DueAt      time.Time  `gorm:"not null;index" json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at"`
	Status     LoanStatus `gorm:"size:20;not null;index" json:"status"`
	FineAmount float64    `gorm:"not null;default:0" json:"fine_amount"`
}

// Open reports whether the loan still holds its book (not yet returned).
func (l *Loan) Open() bool {
	return l.Status == LoanStatusBorrowed || l.Status == LoanStatusOverdue
}

type Reservation struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"book_id"`
	MemberID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"member_id"`
	ReservedAt time.Time         `gorm:"not null" json:"reserved_at"`
	ExpiresAt  time.Time         `gorm:"not null;index" json:"expires_at"`
	Status     ReservationStatus `gorm:"size:20;not null;index" json:"status"`
}
