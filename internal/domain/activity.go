package domain

import (
	"strings"
	"time"
)

// Category groups tracked activities by emission source.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryEnergy    Category = "energy"
	CategoryFood      Category = "food"
	CategoryWaste     Category = "waste"
)

// Categories lists every category in the fixed order used for keyword checks
// and breakdowns.
var Categories = []Category{CategoryTransport, CategoryEnergy, CategoryFood, CategoryWaste}

// ParseCategory returns the category named by s, case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// TrackedActivity is a user-logged emission record owned by the activity store.
type TrackedActivity struct {
	ID            string
	UserID        string
	Category      Category
	ActivityLabel string
	Amount        float64
	CO2Emission   float64
	Timestamp     time.Time
}
