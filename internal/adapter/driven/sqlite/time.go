package sqlite

import (
	"fmt"
	"time"
)

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

// formatTime renders t as a zero-padded UTC RFC 3339 string. All
// scheduled_at values are written through this helper so SQL string
// comparison against another formatTime value is a correct time ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses the timestamp formats SQLite hands back: our own
// RFC 3339 writes plus CURRENT_TIMESTAMP defaults.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
