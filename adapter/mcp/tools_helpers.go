package mcp

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// parseDueDate accepts an RFC 3339 timestamp or a YYYY-MM-DD date, which is
// taken as the end of that day in UTC.
func parseDueDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid due date format, use YYYY-MM-DD or RFC 3339: %w", err)
	}
	endOfDay := parsed.Add(24*time.Hour - time.Second)
	return &endOfDay, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
