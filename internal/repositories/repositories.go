package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"circulation/internal/models"
)

// Migrate creates the schema plus the partial unique indexes AutoMigrate
// cannot express: at most one pending reservation per book, and unique
// non-empty ISBNs. Both statements are valid on postgres and sqlite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Book{},
		&models.Member{},
		&models.Loan{},
		&models.Reservation{},
	); err != nil {
		return err
	}
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_pending_reservation
		 ON reservations (book_id) WHERE status = 'pending'`,
	).Error; err != nil {
		return err
	}
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_book_isbn
		 ON books (isbn) WHERE isbn <> ''`,
	).Error
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	List(db *gorm.DB) ([]models.Book, error)
	SearchBy(db *gorm.DB, column, term string) ([]models.Book, error)
	Update(db *gorm.DB, book *models.Book) error
	UpdateStatus(db *gorm.DB, id uuid.UUID, status models.BookStatus) (int64, error)
	UpdateStatusFrom(db *gorm.DB, id uuid.UUID, from, to models.BookStatus) (int64, error)
	CountByISBN(db *gorm.DB, isbn string, exclude uuid.UUID) (int64, error)
	Count(db *gorm.DB) (int64, error)
	CountByStatus(db *gorm.DB, status models.BookStatus) (int64, error)
	Delete(db *gorm.DB, id uuid.UUID) error
}

type MemberRepository interface {
	Create(db *gorm.DB, member *models.Member) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Member, error)
	List(db *gorm.DB) ([]models.Member, error)
	SearchBy(db *gorm.DB, column, term string) ([]models.Member, error)
	Update(db *gorm.DB, member *models.Member) error
	UpdateStatus(db *gorm.DB, id uuid.UUID, status models.MemberStatus) (int64, error)
	CountByEmail(db *gorm.DB, email string, exclude uuid.UUID) (int64, error)
	Count(db *gorm.DB) (int64, error)
	Delete(db *gorm.DB, id uuid.UUID) error
}

type LoanRepository interface {
	Create(db *gorm.DB, loan *models.Loan) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Loan, error)
	List(db *gorm.DB, status *models.LoanStatus) ([]models.Loan, error)
	ListByMember(db *gorm.DB, memberID uuid.UUID) ([]models.Loan, error)
	MarkReturned(db *gorm.DB, id uuid.UUID, returnedAt time.Time, fine float64) (int64, error)
	MarkOverdue(db *gorm.DB, now time.Time) (int64, error)
	CountOpenByBook(db *gorm.DB, bookID uuid.UUID) (int64, error)
	CountOpenByMember(db *gorm.DB, memberID uuid.UUID) (int64, error)
	CountOpen(db *gorm.DB) (int64, error)
	SumFinesReturnedSince(db *gorm.DB, since time.Time) (float64, error)
}

type ReservationRepository interface {
	// ClaimSlot inserts the reservation only if no pending reservation exists
	// for the same book. Returns false when the slot is already taken.
	ClaimSlot(db *gorm.DB, res *models.Reservation) (bool, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Reservation, error)
	List(db *gorm.DB, status *models.ReservationStatus) ([]models.Reservation, error)
	UpdateStatusFrom(db *gorm.DB, id uuid.UUID, from, to models.ReservationStatus) (int64, error)
	ExpirePending(db *gorm.DB, now time.Time) (int64, error)
}

// concrete implementations

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Order("created_at").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) SearchBy(db *gorm.DB, column, term string) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Where(column+" LIKE ?", "%"+term+"%").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) Update(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]interface{}{
			"title":            book.Title,
			"author":           book.Author,
			"isbn":             book.ISBN,
			"publication_year": book.PublicationYear,
			"category":         book.Category,
			"shelf_location":   book.ShelfLocation,
		}).Error
}

func (r *bookRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, status models.BookStatus) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ?", id).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *bookRepository) UpdateStatusFrom(db *gorm.DB, id uuid.UUID, from, to models.BookStatus) (int64, error) {
	if db == nil {
		db = r.db
	}
	// Single-statement check-and-set; concurrent callers race on the WHERE clause.
	res := db.Model(&models.Book{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *bookRepository) CountByISBN(db *gorm.DB, isbn string, exclude uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Book{}).
		Where("isbn = ? AND id <> ?", isbn, exclude).
		Count(&count).Error
	return count, err
}

func (r *bookRepository) Count(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Book{}).Count(&count).Error
	return count, err
}

func (r *bookRepository) CountByStatus(db *gorm.DB, status models.BookStatus) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Book{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(db *gorm.DB, member *models.Member) error {
	if db == nil {
		db = r.db
	}
	return db.Create(member).Error
}

func (r *memberRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Member, error) {
	if db == nil {
		db = r.db
	}
	var member models.Member
	if err := db.First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) List(db *gorm.DB) ([]models.Member, error) {
	if db == nil {
		db = r.db
	}
	var members []models.Member
	if err := db.Order("joined_at").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) SearchBy(db *gorm.DB, column, term string) ([]models.Member, error) {
	if db == nil {
		db = r.db
	}
	var members []models.Member
	if err := db.Where(column+" LIKE ?", "%"+term+"%").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) Update(db *gorm.DB, member *models.Member) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Member{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{
			"name":    member.Name,
			"email":   member.Email,
			"phone":   member.Phone,
			"address": member.Address,
		}).Error
}

func (r *memberRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, status models.MemberStatus) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Member{}).
		Where("id = ?", id).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *memberRepository) CountByEmail(db *gorm.DB, email string, exclude uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Member{}).
		Where("email = ? AND id <> ?", email, exclude).
		Count(&count).Error
	return count, err
}

func (r *memberRepository) Count(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Member{}).Count(&count).Error
	return count, err
}

func (r *memberRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Member{}, "id = ?", id).Error
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(db *gorm.DB, loan *models.Loan) error {
	if db == nil {
		db = r.db
	}
	return db.Create(loan).Error
}

func (r *loanRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loan models.Loan
	if err := db.First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) List(db *gorm.DB, status *models.LoanStatus) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	q := db.Order("loaned_at DESC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var loans []models.Loan
	if err := q.Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListByMember(db *gorm.DB, memberID uuid.UUID) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loans []models.Loan
	err := db.Where("member_id = ?", memberID).
		Order("loaned_at DESC").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) MarkReturned(db *gorm.DB, id uuid.UUID, returnedAt time.Time, fine float64) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Loan{}).
		Where("id = ? AND returned_at IS NULL", id).
		Updates(map[string]interface{}{
			"returned_at": returnedAt,
			"status":      models.LoanStatusReturned,
			"fine_amount": fine,
		})
	return res.RowsAffected, res.Error
}

func (r *loanRepository) MarkOverdue(db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Loan{}).
		Where("status = ? AND due_at < ?", models.LoanStatusBorrowed, now).
		Update("status", models.LoanStatusOverdue)
	return res.RowsAffected, res.Error
}

func (r *loanRepository) CountOpenByBook(db *gorm.DB, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Loan{}).
		Where("book_id = ? AND returned_at IS NULL", bookID).
		Count(&count).Error
	return count, err
}

func (r *loanRepository) CountOpenByMember(db *gorm.DB, memberID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Loan{}).
		Where("member_id = ? AND returned_at IS NULL", memberID).
		Count(&count).Error
	return count, err
}

func (r *loanRepository) CountOpen(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Loan{}).
		Where("returned_at IS NULL").
		Count(&count).Error
	return count, err
}

func (r *loanRepository) SumFinesReturnedSince(db *gorm.DB, since time.Time) (float64, error) {
	if db == nil {
		db = r.db
	}
	var total float64
	err := db.Model(&models.Loan{}).
		Where("returned_at IS NOT NULL AND returned_at >= ? AND fine_amount > 0", since).
		Select("COALESCE(SUM(fine_amount), 0)").
		Scan(&total).Error
	return total, err
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) ClaimSlot(db *gorm.DB, res *models.Reservation) (bool, error) {
	if db == nil {
		db = r.db
	}
	// Conditional insert so the single-slot check and the write are one
	// atomic statement; portable across postgres and sqlite.
	result := db.Exec(
		`INSERT INTO reservations (id, book_id, member_id, reserved_at, expires_at, status)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
		   SELECT 1 FROM reservations WHERE book_id = ? AND status = ?
		 )`,
		res.ID, res.BookID, res.MemberID, res.ReservedAt, res.ExpiresAt, res.Status,
		res.BookID, models.ReservationStatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *reservationRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Reservation, error) {
	if db == nil {
		db = r.db
	}
	var res models.Reservation
	if err := db.First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) List(db *gorm.DB, status *models.ReservationStatus) ([]models.Reservation, error) {
	if db == nil {
		db = r.db
	}
	q := db.Order("reserved_at DESC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var reservations []models.Reservation
	if err := q.Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *reservationRepository) UpdateStatusFrom(db *gorm.DB, id uuid.UUID, from, to models.ReservationStatus) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *reservationRepository) ExpirePending(db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Reservation{}).
		Where("status = ? AND expires_at < ?", models.ReservationStatusPending, now).
		Update("status", models.ReservationStatusExpired)
	return res.RowsAffected, res.Error
}
