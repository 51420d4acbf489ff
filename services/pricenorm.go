package services

import (
	"math"
	"strings"
)

// Billing-period keyword sets checked against the price context, in order.
// Monthly wins over weekly/daily when several appear.
var (
	monthlyKeywords = []string{"per mnd", "pr mnd", "mnd", "måned", "månedlig", "per month", "monthly"}
	weeklyKeywords  = []string{"per uke", "pr uke", "uke", "weekly", "per week"}
	dailyKeywords   = []string{"per dag", "pr dag", "dag", "per natt", "natt", "daily", "night"}
)

const (
	weeksPerMonth = 4.35
	daysPerMonth  = 30
)

// MonthlyPrice converts a raw amount plus its textual context into a
// canonical monthly rent. Contexts without any period keyword are assumed to
// quote a monthly amount already; short-term listings with ambiguous wording
// are a known source of misclassification under that default.
func MonthlyPrice(amount *int, context string) *int {
	if amount == nil {
		return nil
	}
	ctx := strings.ToLower(context)
	switch {
	case containsAny(ctx, monthlyKeywords):
		return amount
	case containsAny(ctx, weeklyKeywords):
		return intPtr(int(math.Round(float64(*amount) * weeksPerMonth)))
	case containsAny(ctx, dailyKeywords):
		return intPtr(int(math.Round(float64(*amount) * daysPerMonth)))
	}
	return amount
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }
