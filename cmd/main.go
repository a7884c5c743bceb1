package main

import (
	"log"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"circulation/internal/handlers"
	"circulation/internal/repositories"
	"circulation/internal/services"
)

type config struct {
	DatabaseURL        string  `env:"DATABASE_URL,required"`
	ServerAddr         string  `env:"SERVER_ADDR" envDefault:":8080"`
	FineRatePerDay     float64 `env:"FINE_RATE_PER_DAY" envDefault:"0.50"`
	MinLoanDays        int     `env:"MIN_LOAN_DAYS" envDefault:"1"`
	MaxLoanDays        int     `env:"MAX_LOAN_DAYS" envDefault:"30"`
	MinReservationDays int     `env:"MIN_RESERVATION_DAYS" envDefault:"1"`
	MaxReservationDays int     `env:"MAX_RESERVATION_DAYS" envDefault:"30"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := repositories.Migrate(db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	bookRepo := repositories.NewBookRepository(db)
	memberRepo := repositories.NewMemberRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	reservationRepo := repositories.NewReservationRepository(db)

	engineCfg := services.DefaultConfig()
	engineCfg.FineRatePerDay = cfg.FineRatePerDay
	engineCfg.MinLoanDays = cfg.MinLoanDays
	engineCfg.MaxLoanDays = cfg.MaxLoanDays
	engineCfg.MinReservationDays = cfg.MinReservationDays
	engineCfg.MaxReservationDays = cfg.MaxReservationDays

	catalog := services.NewCatalogService(db, bookRepo, loanRepo, engineCfg)
	membership := services.NewMembershipService(db, memberRepo, loanRepo, engineCfg)
	loans := services.NewLoanService(db, bookRepo, memberRepo, loanRepo, engineCfg)
	reservations := services.NewReservationService(db, bookRepo, memberRepo, reservationRepo, engineCfg)
	reports := services.NewReportService(bookRepo, memberRepo, loanRepo, engineCfg)

	router := gin.Default()
	router.Use(cors.Default())

	handlers.RegisterRoutes(router, catalog, membership, loans, reservations, reports)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
