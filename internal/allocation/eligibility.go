package allocation

import "time"

const day = 24 * time.Hour

// Eligibility is the result of evaluating a game's application window.
type Eligibility struct {
	DaysUntilGame int  `json:"daysUntilGame"`
	IsOpen        bool `json:"isOpen"`
}

// ComputeEligibility counts the days left until scheduledAt, rounding partial
// days up, and reports whether applications are still accepted. The window
// closes once fewer than decisionLeadDays remain.
func ComputeEligibility(scheduledAt time.Time, decisionLeadDays int, now time.Time) Eligibility {
	days := DaysUntil(scheduledAt, now)
	return Eligibility{
		DaysUntilGame: days,
		IsOpen:        days > 0 && days >= decisionLeadDays,
	}
}

// DaysUntil returns ceil((scheduledAt - now) / 24h).
func DaysUntil(scheduledAt, now time.Time) int {
	remaining := scheduledAt.Sub(now)
	days := remaining / day
	// Integer division truncates toward zero, which is already the ceiling
	// for negative durations.
	if remaining > 0 && remaining%day != 0 {
		days++
	}
	return int(days)
}
