package student

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"libraryadmin/internal/apperrors"
)

const dateLayout = "2006-01-02"

// Month is a calendar month parsed from YYYY-MM.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses YYYY-MM (a single-digit month is tolerated).
func ParseMonth(s string) (Month, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Month{}, apperrors.Validation("month must be YYYY-MM")
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil || y < 1 {
		return Month{}, apperrors.Validation("month must be YYYY-MM")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Month{}, apperrors.Validation("month must be YYYY-MM")
	}
	return Month{Year: y, Month: time.Month(m)}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether a YYYY-MM-DD date falls in the month.
func (m Month) Contains(date string) bool {
	return strings.HasPrefix(date, m.String()+"-")
}

func validDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return apperrors.Validation("date must be YYYY-MM-DD")
	}
	return nil
}

// Today returns t's calendar date.
func Today(t time.Time) Date {
	return Date(t.Format(dateLayout))
}
