package patient

import (
	"errors"
	"strings"
	"time"

	"github.com/zenda/zenda/internal/platform/validation"
)

const (
	StatusActive   = "Activo"
	StatusInactive = "Inactivo"
)

var ErrNotFound = errors.New("patient not found")

func init() {
	validation.RegisterOneOf("patientstatus", StatusActive, StatusInactive)
}

// Patient is stored at users/{uid}/patients/{id}.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	DOB       string    `json:"dob,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Form is the create/update payload.
type Form struct {
	Name   string `json:"name" validate:"required,max=200"`
	Email  string `json:"email" validate:"omitempty,email,max=254"`
	Phone  string `json:"phone" validate:"omitempty,max=40"`
	Status string `json:"status" validate:"omitempty,patientstatus"`
	DOB    string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Notes  string `json:"notes" validate:"max=5000"`
}

func (f *Form) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Phone = strings.TrimSpace(f.Phone)
	if f.Status == "" {
		f.Status = StatusActive
	}
}

func (f *Form) apply(p *Patient) {
	p.Name = f.Name
	p.Email = f.Email
	p.Phone = f.Phone
	p.Status = f.Status
	p.DOB = f.DOB
	p.Notes = f.Notes
}

// ListFilter narrows List results.
type ListFilter struct {
	Status string
	// Query matches a case-insensitive name prefix.
	Query string
}

func (f ListFilter) matches(p *Patient) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Query != "" && !strings.HasPrefix(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
		return false
	}
	return true
}
