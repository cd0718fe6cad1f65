package note

import (
	"errors"
	"strings"
	"time"

	"github.com/zenda/zenda/internal/platform/validation"
)

const (
	TypeVoice = "Voz"
	TypeText  = "Texto"
)

var ErrNotFound = errors.New("note not found")

func init() {
	validation.RegisterOneOf("notetype", TypeVoice, TypeText)
}

// Note is stored at users/{uid}/patients/{patientId}/notes/{id}.
type Note struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Form struct {
	Title   string `json:"title" validate:"required,max=200"`
	Type    string `json:"type" validate:"required,notetype"`
	Content string `json:"content" validate:"max=100000"`
}

func (f *Form) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	if f.Type == "" {
		f.Type = TypeText
	}
}

// ListFilter bounds notes by creation time. Zero values are open ends.
type ListFilter struct {
	From time.Time
	To   time.Time
}

func (f ListFilter) matches(n *Note) bool {
	if !f.From.IsZero() && n.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !n.CreatedAt.Before(f.To) {
		return false
	}
	return true
}
