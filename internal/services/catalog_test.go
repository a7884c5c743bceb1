package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulation/internal/models"
)

func TestAddBookRequiresTitleAndAuthor(t *testing.T) {
	e := newEngine(t)

	_, err := e.catalog.Add(&models.Book{Author: "Anonymous"})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = e.catalog.Add(&models.Book{Title: "Untitled"})
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestAddBookRejectsDuplicateISBN(t *testing.T) {
	e := newEngine(t)

	_, err := e.catalog.Add(&models.Book{
		Title:  "First Edition",
		Author: "A. Writer",
		ISBN:   "9780061120084",
	})
	require.NoError(t, err)

	_, err = e.catalog.Add(&models.Book{
		Title:  "Second Edition",
		Author: "A. Writer",
		ISBN:   "9780061120084",
	})
	assert.ErrorIs(t, err, ErrDuplicateISBN)

	// Books without an ISBN never collide.
	_, err = e.catalog.Add(&models.Book{Title: "No ISBN", Author: "A. Writer"})
	require.NoError(t, err)
	_, err = e.catalog.Add(&models.Book{Title: "Also No ISBN", Author: "A. Writer"})
	require.NoError(t, err)
}

func TestSetStatusUnknownBookFails(t *testing.T) {
	e := newEngine(t)
	err := e.catalog.SetStatus(uuid.New(), models.BookStatusLost)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestSetStatusOverwritesUnconditionally(t *testing.T) {
	e := newEngine(t)
	book := seedBook(t, e, "Misplaced")

	require.NoError(t, e.catalog.SetStatus(book.ID, models.BookStatusLost))

	fresh, err := e.catalog.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusLost, fresh.Status)
}

func TestRemoveBookBlockedByOpenLoan(t *testing.T) {
	e := newEngine(t)
	book := seedBook(t, e, "In Circulation")
	member := seedMember(t, e, "borrower@example.com")

	loan, err := e.loans.Issue(book.ID, member.ID, 14)
	require.NoError(t, err)

	err = e.catalog.Remove(book.ID)
	assert.ErrorIs(t, err, ErrBookHasOpenLoans)

	_, err = e.loans.Return(loan.ID)
	require.NoError(t, err)

	// Once the loan is closed the book may go.
	require.NoError(t, e.catalog.Remove(book.ID))

	_, err = e.catalog.Get(book.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestSearchBooks(t *testing.T) {
	e := newEngine(t)

	_, err := e.catalog.Add(&models.Book{Title: "The Hobbit", Author: "J.R.R. Tolkien", Category: "Fantasy"})
	require.NoError(t, err)
	_, err = e.catalog.Add(&models.Book{Title: "The Lord of the Rings", Author: "J.R.R. Tolkien", Category: "Fantasy"})
	require.NoError(t, err)
	_, err = e.catalog.Add(&models.Book{Title: "1984", Author: "George Orwell", Category: "Fiction"})
	require.NoError(t, err)

	byAuthor, err := e.catalog.Search("author", "Tolkien")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	byTitle, err := e.catalog.Search("title", "Hobbit")
	require.NoError(t, err)
	assert.Len(t, byTitle, 1)

	byCategory, err := e.catalog.Search("category", "Fiction")
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	_, err = e.catalog.Search("publisher", "Penguin")
	assert.ErrorIs(t, err, ErrInvalidSearchField)
}

func TestUpdateBookRewritesBibliographicFields(t *testing.T) {
	e := newEngine(t)
	book := seedBook(t, e, "Draft Title")

	book.Title = "Final Title"
	book.ShelfLocation = "B2"
	updated, err := e.catalog.Update(book)
	require.NoError(t, err)
	assert.Equal(t, "Final Title", updated.Title)
	assert.Equal(t, "B2", updated.ShelfLocation)

	missing := &models.Book{ID: uuid.New(), Title: "Ghost", Author: "Nobody"}
	_, err = e.catalog.Update(missing)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestISBNBackedByUniqueIndex(t *testing.T) {
	e := newEngine(t)

	_, err := e.catalog.Add(&models.Book{Title: "First Edition", Author: "A. Writer", ISBN: "978-0-11"})
	require.NoError(t, err)

	// A duplicate written behind the service's back is rejected by the store
	// itself; the error classifies as a unique violation.
	dup := &models.Book{
		ID:        uuid.New(),
		Title:     "Pirated Edition",
		Author:    "A. Writer",
		ISBN:      "978-0-11",
		Status:    models.BookStatusAvailable,
		CreatedAt: e.clock.Now(),
	}
	err = e.db.Create(dup).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	// Books without an ISBN are exempt from the index.
	blank := &models.Book{
		ID:        uuid.New(),
		Title:     "Pamphlet",
		Author:    "A. Writer",
		Status:    models.BookStatusAvailable,
		CreatedAt: e.clock.Now(),
	}
	require.NoError(t, e.db.Create(blank).Error)
}
