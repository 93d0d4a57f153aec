package services

import (
	"time"

	"github.com/fenilmodi00/ipo-gmp-alert/models"
)

// Minimum GMP percentages for a listing to be alerted on
const (
	SMEMinGMPPercent       = 60.0
	MainboardMinGMPPercent = 20.0
)

// FilterStats explains why records were dropped by FilterIPOsWithStats
type FilterStats struct {
	Total           int
	Matched         int
	Closed          int
	BelowThreshold  int
	UnknownCategory int
}

// FilterIPOs keeps open IPOs whose GMP clears their category threshold,
// preserving upstream order.
func FilterIPOs(records []models.IPORecord, today time.Time) []models.IPORecord {
	matched, _ := FilterIPOsWithStats(records, today)
	return matched
}

// FilterIPOsWithStats is FilterIPOs plus per-reason drop counts.
// A record whose close date is missing or unparseable counts as closed.
func FilterIPOsWithStats(records []models.IPORecord, today time.Time) ([]models.IPORecord, FilterStats) {
	today = DateOf(today)
	stats := FilterStats{Total: len(records)}
	filtered := make([]models.IPORecord, 0)

	for _, record := range records {
		closeDate := ParseISODate(record.Field(models.FieldCloseISO))
		if closeDate == nil || closeDate.Before(today) {
			stats.Closed++
			continue
		}

		gmp := ParseGMPPercentage(record.Field(models.FieldGMP))

		switch record.Category() {
		case models.CategorySME:
			if gmp < SMEMinGMPPercent {
				stats.BelowThreshold++
				continue
			}
		case models.CategoryMainboard:
			if gmp < MainboardMinGMPPercent {
				stats.BelowThreshold++
				continue
			}
		default:
			stats.UnknownCategory++
			continue
		}

		filtered = append(filtered, record)
	}

	stats.Matched = len(filtered)
	return filtered, stats
}
