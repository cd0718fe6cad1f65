package scheduling

import (
	"fmt"
	"time"
)

// ConflictError reports that a candidate overlaps an existing session. It is
// attributed to the form's time field.
type ConflictError struct {
	Existing *Session
}

func (e *ConflictError) Error() string {
	return "time: " + e.Message()
}

// Message names the conflicting patient and time in the existing session's
// zone.
func (e *ConflictError) Message() string {
	start, end := e.Existing.Date.In(e.Existing.Location()), e.Existing.EndDate.In(e.Existing.Location())
	return fmt.Sprintf("overlaps the session with %s on %s from %s to %s",
		e.Existing.PatientName, start.Format("2006-01-02"), start.Format("15:04"), end.Format("15:04"))
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching intervals do not.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// CheckOverlap returns a *ConflictError for the first session in existing
// that intersects candidate. Cancelled sessions and the candidate itself are
// ignored; a cancelled candidate never conflicts.
func CheckOverlap(candidate *Session, existing []*Session) error {
	if candidate.Status == StatusCancelled {
		return nil
	}
	for _, s := range existing {
		if s.Status == StatusCancelled {
			continue
		}
		if candidate.ID != "" && s.ID == candidate.ID {
			continue
		}
		if Overlaps(candidate.Date, candidate.EndDate, s.Date, s.EndDate) {
			return &ConflictError{Existing: s}
		}
	}
	return nil
}
