package scheduling

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/zenda/zenda/internal/platform/validation"
)

const (
	StatusConfirmed = "Confirmada"
	StatusPending   = "Pendiente"
	StatusCancelled = "Cancelada"
	StatusNoShow    = "No asistió"

	TypeIndividual = "Individual"
	TypeCouple     = "Pareja"
	TypeFamily     = "Familiar"

	DurationCustom    = "custom"
	MinCustomDuration = 5
	MaxCustomDuration = 480

	ScopeCalendar = "calendar"
	ScopePatient  = "patient"
)

var ErrNotFound = errors.New("session not found")

var (
	statuses = []string{StatusConfirmed, StatusPending, StatusCancelled, StatusNoShow}
	types    = []string{TypeIndividual, TypeCouple, TypeFamily}
)

func init() {
	validation.RegisterOneOf("sessionstatus", statuses...)
	validation.RegisterOneOf("sessiontype", types...)
	validation.RegisterOneOf("sessionduration", "30", "45", "60", "90", DurationCustom)
}

// Session is stored at users/{uid}/sessions/{id}. Date and EndDate are
// expressed in TimeZone when read back from a repository.
type Session struct {
	ID                 string    `json:"id"`
	PatientID          string    `json:"patientId"`
	PatientName        string    `json:"patientName"`
	Date               time.Time `json:"date"`
	EndDate            time.Time `json:"endDate"`
	TimeZone           string    `json:"timeZone"`
	Duration           int       `json:"duration"`
	Type               string    `json:"type"`
	Status             string    `json:"status"`
	RemindPatient      bool      `json:"remindPatient"`
	RemindPsychologist bool      `json:"remindPsychologist"`
	CalendarEventID    string    `json:"calendarEventId,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Location returns the session's zone, falling back to UTC.
func (s *Session) Location() *time.Location {
	if s.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s *Session) localize() {
	loc := s.Location()
	s.Date = s.Date.In(loc)
	s.EndDate = s.EndDate.In(loc)
}

// DurationChoice is one of the preset lengths or "custom". Clients may send
// it as a JSON string or number.
type DurationChoice string

func (d *DurationChoice) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = DurationChoice(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = DurationChoice(strconv.Itoa(n))
	return nil
}

// Form is the create/update payload. Date and Time are interpreted in
// TimeZone, or in the server default zone when TimeZone is empty.
type Form struct {
	PatientID          string         `json:"patientId" validate:"required,max=128"`
	Date               string         `json:"date" validate:"required,datetime=2006-01-02"`
	Time               string         `json:"time" validate:"required,datetime=15:04"`
	TimeZone           string         `json:"timeZone" validate:"omitempty,max=64"`
	Duration           DurationChoice `json:"duration" validate:"required,sessionduration"`
	CustomDuration     int            `json:"customDuration"`
	Type               string         `json:"type" validate:"required,sessiontype"`
	Status             string         `json:"status" validate:"required,sessionstatus"`
	RemindPatient      bool           `json:"remindPatient"`
	RemindPsychologist bool           `json:"remindPsychologist"`
	Notes              string         `json:"notes" validate:"max=5000"`
}

func (f *Form) normalize() {
	f.PatientID = strings.TrimSpace(f.PatientID)
	f.Date = strings.TrimSpace(f.Date)
	f.Time = strings.TrimSpace(f.Time)
	f.TimeZone = strings.TrimSpace(f.TimeZone)
	f.Duration = DurationChoice(strings.TrimSpace(string(f.Duration)))
	if f.Type == "" {
		f.Type = TypeIndividual
	}
	if f.Status == "" {
		f.Status = StatusConfirmed
	}
}

// Minutes resolves the duration choice to a length in minutes.
func (f *Form) Minutes() (int, error) {
	if f.Duration != DurationCustom {
		n, err := strconv.Atoi(string(f.Duration))
		if err != nil || n <= 0 {
			return 0, validation.Field("duration", "is invalid")
		}
		return n, nil
	}
	if f.CustomDuration == 0 {
		return 0, validation.Field("customDuration", "is required")
	}
	if f.CustomDuration < MinCustomDuration || f.CustomDuration > MaxCustomDuration {
		return 0, validation.Field("customDuration",
			"must be between "+strconv.Itoa(MinCustomDuration)+" and "+strconv.Itoa(MaxCustomDuration)+" minutes")
	}
	return f.CustomDuration, nil
}

// Interval resolves the form to its start, end and zone name. def is used
// when the form carries no zone.
func (f *Form) Interval(def *time.Location) (start, end time.Time, zone string, err error) {
	loc := def
	if f.TimeZone != "" {
		loc, err = time.LoadLocation(f.TimeZone)
		if err != nil {
			return time.Time{}, time.Time{}, "", validation.Field("timeZone", "must be an IANA time zone")
		}
	}
	minutes, err := f.Minutes()
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	start, err = time.ParseInLocation("2006-01-02 15:04", f.Date+" "+f.Time, loc)
	if err != nil {
		return time.Time{}, time.Time{}, "", validation.Field("time", "is invalid")
	}
	return start, start.Add(time.Duration(minutes) * time.Minute), loc.String(), nil
}

func (f *Form) apply(s *Session) {
	s.PatientID = f.PatientID
	s.Type = f.Type
	s.Status = f.Status
	s.RemindPatient = f.RemindPatient
	s.RemindPsychologist = f.RemindPsychologist
	s.Notes = f.Notes
}

// StatusForm is the payload of a status-only change.
type StatusForm struct {
	Status string `json:"status" validate:"required,sessionstatus"`
}

// ReminderForm selects who a manual reminder goes to.
type ReminderForm struct {
	Audience string `json:"audience" validate:"required,oneof=patient psychologist both"`
}

// ListFilter narrows List results. From is inclusive and To exclusive, both
// on the session start.
type ListFilter struct {
	From      time.Time
	To        time.Time
	PatientID string
	Status    string
}

func (f ListFilter) matches(s *Session) bool {
	if !f.From.IsZero() && s.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !s.Date.Before(f.To) {
		return false
	}
	if f.PatientID != "" && s.PatientID != f.PatientID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}

// Warning is a non-fatal side-effect failure returned next to a persisted
// session.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnCalendarNotConnected = "calendar_not_connected"
	WarnCalendarSyncFailed   = "calendar_sync_failed"
	WarnReminderConfigError  = "reminder_config_error"
	WarnReminderFailed       = "reminder_failed"
)

// Result is a persisted session plus any warnings.
type Result struct {
	Session  *Session  `json:"session"`
	Warnings []Warning `json:"warnings"`
}

// Stats summarises sessions in a range for the dashboard.
type Stats struct {
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
	Total    int            `json:"total"`
	Minutes  int            `json:"minutes"`
	ByStatus map[string]int `json:"byStatus"`
	ByType   map[string]int `json:"byType"`
}
