package services

import (
	"errors"
	"strings"
)

var (
	// ErrBookNotFound is returned when the referenced book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrBookNotAvailable is returned when a loan is requested for a book
	// whose catalog status is anything other than available.
	ErrBookNotAvailable = errors.New("book is not available for loan")

	// ErrBookHasOpenLoans blocks catalog removal of a book that is still
	// referenced by an open loan.
	ErrBookHasOpenLoans = errors.New("book has open loans")

	// ErrDuplicateISBN is returned when another book already carries the ISBN.
	ErrDuplicateISBN = errors.New("isbn already registered")

	// ErrMemberNotFound is returned when the referenced member does not exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrMemberNotEligible is returned when a loan or reservation is requested
	// for a missing or inactive member.
	ErrMemberNotEligible = errors.New("member is missing or not active")

	// ErrMemberHasOpenLoans blocks removal of a member who still owns an open loan.
	ErrMemberHasOpenLoans = errors.New("member has open loans")

	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrLoanNotFound is returned when the referenced loan does not exist.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrLoanAlreadyReturned is returned when a return is attempted on a loan
	// that has already been closed.
	ErrLoanAlreadyReturned = errors.New("loan already returned")

	// ErrInvalidLoanPeriod is returned when the requested loan period falls
	// outside the configured bounds.
	ErrInvalidLoanPeriod = errors.New("loan period out of bounds")

	// ErrInvalidReservationPeriod is returned when the requested reservation
	// validity falls outside the configured bounds.
	ErrInvalidReservationPeriod = errors.New("reservation period out of bounds")

	// ErrReservationNotFound is returned when the referenced reservation does not exist.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrAlreadyReserved is returned when a book's single reservation slot is
	// already held by a pending reservation.
	ErrAlreadyReserved = errors.New("book already has a pending reservation")

	// ErrInvalidReservationState is returned when an operation is not valid
	// for the reservation's current lifecycle state.
	ErrInvalidReservationState = errors.New("reservation is not in a valid state for this operation")

	// ErrMissingFields is returned when a required entity field is blank.
	ErrMissingFields = errors.New("required fields are missing")

	// ErrInvalidStatus is returned when a status value is not one of the
	// recognized states for the entity.
	ErrInvalidStatus = errors.New("invalid status value")

	// ErrInvalidSearchField is returned when a search targets an unknown column.
	ErrInvalidSearchField = errors.New("invalid search field")
)

// isUniqueViolation checks whether a unique-constraint error occurred.
// PostgreSQL error code 23505 = unique_violation; SQLite reports
// "UNIQUE constraint failed".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
