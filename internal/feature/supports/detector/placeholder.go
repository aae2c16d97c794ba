package detector

import (
	"time"

	"support_tracker/internal/feature/supports/domain/entity"
)

// PlaceholderLevels returns a fixed demonstration result anchored at now.
// It is only served when placeholder fallback is explicitly enabled and no
// real levels exist for a symbol.
func PlaceholderLevels(now time.Time) []entity.SupportLevel {
	at := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}
	return []entity.SupportLevel{
		{Price: 20000, Strength: 85.5, Touches: 7, LastTest: at(0)},
		{Price: 19500, Strength: 75.2, Touches: 5, LastTest: at(48 * time.Hour)},
		{Price: 19000, Strength: 65.8, Touches: 4, LastTest: at(120 * time.Hour)},
	}
}
