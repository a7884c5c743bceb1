package services

import "time"

// Clock supplies the current instant. Overdue and expiry transitions are
// computed lazily against it, so injecting a fixed clock makes the whole
// engine deterministic in tests.
type Clock func() time.Time

// Config carries the business constants of the circulation engine.
type Config struct {
	// FineRatePerDay is charged per whole day a returned loan is overdue.
	FineRatePerDay float64

	// MinLoanDays and MaxLoanDays bound the caller-supplied loan period.
	MinLoanDays int
	MaxLoanDays int

	// MinReservationDays and MaxReservationDays bound reservation validity.
	MinReservationDays int
	MaxReservationDays int

	// Now overrides the engine clock; defaults to time.Now in UTC.
	Now Clock
}

// DefaultConfig returns the standard circulation rules: $0.50/day fines,
// 1-30 day loans and 1-30 day reservation validity.
func DefaultConfig() Config {
	return Config{
		FineRatePerDay:     0.50,
		MinLoanDays:        1,
		MaxLoanDays:        30,
		MinReservationDays: 1,
		MaxReservationDays: 30,
	}
}

func (c Config) clock() Clock {
	if c.Now != nil {
		return c.Now
	}
	return func() time.Time { return time.Now().UTC() }
}
