package services

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"circulation/internal/models"
	"circulation/internal/repositories"
)

// fakeClock is a mutable instant the whole engine reads its time from.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) AdvanceDays(days int) {
	c.Advance(time.Duration(days) * 24 * time.Hour)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "circulation.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Serialize connections so concurrent transactions queue on sqlite
	// instead of failing busy.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, repositories.Migrate(db))
	return db
}

type engine struct {
	db           *gorm.DB
	clock        *fakeClock
	cfg          Config
	catalog      CatalogService
	membership   MembershipService
	loans        LoanService
	reservations ReservationService
	reports      ReportService
}

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := newTestDB(t)
	clock := &fakeClock{t: testEpoch}

	cfg := DefaultConfig()
	cfg.Now = clock.Now

	books := repositories.NewBookRepository(db)
	members := repositories.NewMemberRepository(db)
	loans := repositories.NewLoanRepository(db)
	reservations := repositories.NewReservationRepository(db)

	return &engine{
		db:           db,
		clock:        clock,
		cfg:          cfg,
		catalog:      NewCatalogService(db, books, loans, cfg),
		membership:   NewMembershipService(db, members, loans, cfg),
		loans:        NewLoanService(db, books, members, loans, cfg),
		reservations: NewReservationService(db, books, members, reservations, cfg),
		reports:      NewReportService(books, members, loans, cfg),
	}
}

func seedBook(t *testing.T, e *engine, title string) *models.Book {
	t.Helper()
	book, err := e.catalog.Add(&models.Book{
		Title:    title,
		Author:   "Test Author",
		Category: "Fiction",
	})
	require.NoError(t, err)
	return book
}

func seedMember(t *testing.T, e *engine, email string) *models.Member {
	t.Helper()
	member, err := e.membership.Add(&models.Member{
		Name:  "Test Member",
		Email: email,
	})
	require.NoError(t, err)
	return member
}
