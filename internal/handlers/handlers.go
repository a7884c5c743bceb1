package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"circulation/internal/models"
	"circulation/internal/services"
)

type CirculationHandler struct {
	catalog      services.CatalogService
	membership   services.MembershipService
	loans        services.LoanService
	reservations services.ReservationService
	reports      services.ReportService
}

func RegisterRoutes(
	r *gin.Engine,
	catalog services.CatalogService,
	membership services.MembershipService,
	loans services.LoanService,
	reservations services.ReservationService,
	reports services.ReportService,
) {
	h := &CirculationHandler{
		catalog:      catalog,
		membership:   membership,
		loans:        loans,
		reservations: reservations,
		reports:      reports,
	}

	r.POST("/books", h.addBook)
	r.GET("/books", h.listBooks)
	r.GET("/books/search", h.searchBooks)
	r.GET("/books/:id", h.getBook)
	r.PUT("/books/:id", h.updateBook)
	r.PATCH("/books/:id/status", h.setBookStatus)
	r.DELETE("/books/:id", h.removeBook)

	r.POST("/members", h.addMember)
	r.GET("/members", h.listMembers)
	r.GET("/members/search", h.searchMembers)
	r.GET("/members/:id", h.getMember)
	r.PUT("/members/:id", h.updateMember)
	r.PATCH("/members/:id/status", h.setMemberStatus)
	r.DELETE("/members/:id", h.removeMember)
	r.GET("/members/:id/loans", h.listMemberLoans)

	r.POST("/loans", h.issueLoan)
	r.GET("/loans", h.listLoans)
	r.GET("/loans/:id", h.getLoan)
	r.POST("/loans/:id/return", h.returnLoan)
	r.GET("/loans/:id/fine", h.previewFine)

	r.POST("/reservations", h.requestReservation)
	r.GET("/reservations", h.listReservations)
	r.GET("/reservations/:id", h.getReservation)
	r.POST("/reservations/:id/fulfill", h.fulfillReservation)
	r.POST("/reservations/:id/cancel", h.cancelReservation)

	r.GET("/reports/dashboard", h.dashboard)
	r.GET("/reports/overdue", h.overdueReport)
	r.GET("/reports/fines", h.finesCollected)
}

// statusFor maps engine sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrLoanNotFound),
		errors.Is(err, services.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrDuplicateISBN),
		errors.Is(err, services.ErrBookHasOpenLoans),
		errors.Is(err, services.ErrMemberHasOpenLoans),
		errors.Is(err, services.ErrBookNotAvailable),
		errors.Is(err, services.ErrAlreadyReserved),
		errors.Is(err, services.ErrLoanAlreadyReturned),
		errors.Is(err, services.ErrInvalidReservationState):
		return http.StatusConflict
	case errors.Is(err, services.ErrMemberNotEligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidLoanPeriod),
		errors.Is(err, services.ErrInvalidReservationPeriod),
		errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidSearchField):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// --- Books ---

type bookRequest struct {
	Title           string `json:"title" binding:"required"`
	Author          string `json:"author" binding:"required"`
	ISBN            string `json:"isbn"`
	PublicationYear int    `json:"publication_year"`
	Category        string `json:"category"`
	ShelfLocation   string `json:"shelf_location"`
}

func (h *CirculationHandler) addBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book, err := h.catalog.Add(&models.Book{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		PublicationYear: req.PublicationYear,
		Category:        req.Category,
		ShelfLocation:   req.ShelfLocation,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *CirculationHandler) listBooks(c *gin.Context) {
	books, err := h.catalog.List()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *CirculationHandler) searchBooks(c *gin.Context) {
	books, err := h.catalog.Search(c.Query("by"), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *CirculationHandler) getBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	book, err := h.catalog.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *CirculationHandler) updateBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book, err := h.catalog.Update(&models.Book{
		ID:              id,
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		PublicationYear: req.PublicationYear,
		Category:        req.Category,
		ShelfLocation:   req.ShelfLocation,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

type bookStatusRequest struct {
	Status models.BookStatus `json:"status" binding:"required"`
}

func (h *CirculationHandler) setBookStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req bookStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalog.SetStatus(id, req.Status); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CirculationHandler) removeBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.Remove(id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Members ---

type memberRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (h *CirculationHandler) addMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	member, err := h.membership.Add(&models.Member{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *CirculationHandler) listMembers(c *gin.Context) {
	members, err := h.membership.List()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *CirculationHandler) searchMembers(c *gin.Context) {
	members, err := h.membership.Search(c.Query("by"), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *CirculationHandler) getMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	member, err := h.membership.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *CirculationHandler) updateMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	member, err := h.membership.Update(&models.Member{
		ID:      id,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

type memberStatusRequest struct {
	Status models.MemberStatus `json:"status" binding:"required"`
}

func (h *CirculationHandler) setMemberStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req memberStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.membership.SetStatus(id, req.Status); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CirculationHandler) removeMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.membership.Remove(id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CirculationHandler) listMemberLoans(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loans, err := h.loans.ListByMember(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

// --- Loans ---

type issueLoanRequest struct {
	BookID   string `json:"book_id" binding:"required,uuid"`
	MemberID string `json:"member_id" binding:"required,uuid"`
	LoanDays int    `json:"loan_days" binding:"required"`
}

func (h *CirculationHandler) issueLoan(c *gin.Context) {
	var req issueLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bookID, _ := uuid.Parse(req.BookID)
	memberID, _ := uuid.Parse(req.MemberID)

	loan, err := h.loans.Issue(bookID, memberID, req.LoanDays)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *CirculationHandler) listLoans(c *gin.Context) {
	var status *models.LoanStatus
	if s := c.Query("status"); s != "" {
		v := models.LoanStatus(s)
		status = &v
	}
	loans, err := h.loans.List(status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (h *CirculationHandler) getLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loan, err := h.loans.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *CirculationHandler) returnLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loan, err := h.loans.Return(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *CirculationHandler) previewFine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	fine, err := h.loans.PreviewFine(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan_id": id, "current_fine": fine})
}

// --- Reservations ---

type reservationRequest struct {
	BookID    string `json:"book_id" binding:"required,uuid"`
	MemberID  string `json:"member_id" binding:"required,uuid"`
	ValidDays int    `json:"valid_days" binding:"required"`
}

func (h *CirculationHandler) requestReservation(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bookID, _ := uuid.Parse(req.BookID)
	memberID, _ := uuid.Parse(req.MemberID)

	res, err := h.reservations.Request(bookID, memberID, req.ValidDays)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *CirculationHandler) listReservations(c *gin.Context) {
	var status *models.ReservationStatus
	if s := c.Query("status"); s != "" {
		v := models.ReservationStatus(s)
		status = &v
	}
	reservations, err := h.reservations.List(status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func (h *CirculationHandler) getReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.reservations.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CirculationHandler) fulfillReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.reservations.Fulfill(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CirculationHandler) cancelReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.reservations.Cancel(id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Reports ---

func (h *CirculationHandler) dashboard(c *gin.Context) {
	stats, err := h.reports.Dashboard()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *CirculationHandler) overdueReport(c *gin.Context) {
	entries, err := h.reports.OverdueReport()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *CirculationHandler) finesCollected(c *gin.Context) {
	since := time.Time{}
	if s := c.Query("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		since = parsed
	}
	total, err := h.reports.FinesCollected(since)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_fines": total})
}
