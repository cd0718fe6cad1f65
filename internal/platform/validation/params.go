package validation

import "time"

// TimeParam parses a query parameter holding an RFC 3339 timestamp or a plain
// YYYY-MM-DD date (midnight UTC). An empty value yields the zero time.
func TimeParam(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, Field(field, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
}
