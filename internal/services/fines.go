package services

import "time"

// CalculateFine computes the overdue fine for a loan returned at returnedAt.
//
// Rules:
//   - No fine when the loan is returned on or before its due instant.
//   - Otherwise the overdue duration is truncated to whole days and charged
//     at ratePerDay; less than 24h late therefore costs nothing.
//
// The function is pure and never fails.
func CalculateFine(dueAt, returnedAt time.Time, ratePerDay float64) float64 {
	if !returnedAt.After(dueAt) {
		return 0
	}
	daysLate := int(returnedAt.Sub(dueAt).Hours() / 24)
	return float64(daysLate) * ratePerDay
}
