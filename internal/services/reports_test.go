package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardCounts(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e, "On Shelf")
	book2 := seedBook(t, e, "On Loan")
	book3 := seedBook(t, e, "On Hold")
	member := seedMember(t, e, "counted@example.com")

	_, err := e.loans.Issue(book2.ID, member.ID, 14)
	require.NoError(t, err)

	res, err := e.reservations.Request(book3.ID, member.ID, 7)
	require.NoError(t, err)
	_, err = e.reservations.Fulfill(res.ID)
	require.NoError(t, err)

	stats, err := e.reports.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalBooks)
	assert.Equal(t, int64(1), stats.AvailableBooks)
	assert.Equal(t, int64(1), stats.ReservedBooks)
	assert.Equal(t, int64(1), stats.TotalMembers)
	assert.Equal(t, int64(1), stats.OpenLoans)
}

func TestOverdueReportPreviewsFines(t *testing.T) {
	e := newEngine(t)
	book := seedBook(t, e, "Way Overdue")
	punctual := seedBook(t, e, "On Time")
	member := seedMember(t, e, "overdue@example.com")

	_, err := e.loans.Issue(book.ID, member.ID, 7)
	require.NoError(t, err)
	_, err = e.loans.Issue(punctual.ID, member.ID, 30)
	require.NoError(t, err)

	e.clock.AdvanceDays(12) // five days past the first loan's due date

	entries, err := e.reports.OverdueReport()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, book.ID, entries[0].Loan.BookID)
	assert.Equal(t, 5*e.cfg.FineRatePerDay, entries[0].CurrentFine)
}

func TestFinesCollectedSince(t *testing.T) {
	e := newEngine(t)
	book := seedBook(t, e, "Costly Delay")
	member := seedMember(t, e, "payer@example.com")

	loan, err := e.loans.Issue(book.ID, member.ID, 7)
	require.NoError(t, err)

	e.clock.AdvanceDays(11) // four days late

	returned, err := e.loans.Return(loan.ID)
	require.NoError(t, err)
	require.Equal(t, 4*e.cfg.FineRatePerDay, returned.FineAmount)

	total, err := e.reports.FinesCollected(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 4*e.cfg.FineRatePerDay, total)

	// A cutoff after the return sees nothing.
	total, err = e.reports.FinesCollected(e.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
}
