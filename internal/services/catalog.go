package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"circulation/internal/models"
	"circulation/internal/repositories"
)

// CatalogService owns book records and their availability status. Status is
// only mutated here via SetStatus (caller responsibility) and by the loan and
// reservation services, which are the invariant-preserving writers.
type CatalogService interface {
	Add(book *models.Book) (*models.Book, error)
	Get(id uuid.UUID) (*models.Book, error)
	List() ([]models.Book, error)
	Search(field, term string) ([]models.Book, error)
	Update(book *models.Book) (*models.Book, error)
	SetStatus(id uuid.UUID, status models.BookStatus) error
	Remove(id uuid.UUID) error
}

type catalogService struct {
	db    *gorm.DB
	books repositories.BookRepository
	loans repositories.LoanRepository
	now   Clock
}

func NewCatalogService(db *gorm.DB, books repositories.BookRepository, loans repositories.LoanRepository, cfg Config) CatalogService {
	return &catalogService{
		db:    db,
		books: books,
		loans: loans,
		now:   cfg.clock(),
	}
}

var bookSearchColumns = map[string]string{
	"title":    "title",
	"author":   "author",
	"isbn":     "isbn",
	"category": "category",
}

func validBookStatus(s models.BookStatus) bool {
	switch s {
	case models.BookStatusAvailable, models.BookStatusBorrowed,
		models.BookStatusReserved, models.BookStatusLost:
		return true
	}
	return false
}

// Add creates a catalog entry. The ISBN, when supplied, must not already be
// registered to another book.
func (s *catalogService) Add(book *models.Book) (*models.Book, error) {
	if book.Title == "" || book.Author == "" {
		return nil, ErrMissingFields
	}
	if book.Status == "" {
		book.Status = models.BookStatusAvailable
	}
	if !validBookStatus(book.Status) {
		return nil, ErrInvalidStatus
	}
	book.ID = uuid.New()
	book.CreatedAt = s.now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if book.ISBN != "" {
			count, err := s.books.CountByISBN(tx, book.ISBN, book.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateISBN
			}
		}
		if err := s.books.Create(tx, book); err != nil {
			// Concurrent adds can both pass the count; the partial unique
			// index on non-empty ISBNs decides, and the loser surfaces here.
			if isUniqueViolation(err) {
				return ErrDuplicateISBN
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Catalog.Add: added book %q by %s (id=%s)", book.Title, book.Author, book.ID)
	return book, nil
}

func (s *catalogService) Get(id uuid.UUID) (*models.Book, error) {
	book, err := s.books.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *catalogService) List() ([]models.Book, error) {
	return s.books.List(nil)
}

func (s *catalogService) Search(field, term string) ([]models.Book, error) {
	column, ok := bookSearchColumns[field]
	if !ok {
		return nil, ErrInvalidSearchField
	}
	return s.books.SearchBy(nil, column, term)
}

// Update rewrites the bibliographic fields of an existing book. Status is not
// touched here; use SetStatus.
func (s *catalogService) Update(book *models.Book) (*models.Book, error) {
	if book.Title == "" || book.Author == "" {
		return nil, ErrMissingFields
	}

	var updated *models.Book
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.books.GetByID(tx, book.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if book.ISBN != "" {
			count, err := s.books.CountByISBN(tx, book.ISBN, book.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateISBN
			}
		}
		if err := s.books.Update(tx, book); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateISBN
			}
			return err
		}
		fresh, err := s.books.GetByID(tx, book.ID)
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

// SetStatus unconditionally overwrites the book's status. Cross-checking loan
// and reservation state is the caller's responsibility.
func (s *catalogService) SetStatus(id uuid.UUID, status models.BookStatus) error {
	if !validBookStatus(status) {
		return ErrInvalidStatus
	}
	rows, err := s.books.UpdateStatus(nil, id, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookNotFound
	}
	log.Printf("[INFO] Catalog.SetStatus: book %s -> %s", id, status)
	return nil
}

// Remove deletes the book unless an open loan still references it.
func (s *catalogService) Remove(id uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.books.GetByID(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		open, err := s.loans.CountOpenByBook(tx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			log.Printf("[WARN] Catalog.Remove: book %s has %d open loan(s), refusing delete", id, open)
			return ErrBookHasOpenLoans
		}
		return s.books.Delete(tx, id)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] Catalog.Remove: deleted book %s", id)
	return nil
}
