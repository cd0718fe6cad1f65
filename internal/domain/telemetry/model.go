// Package telemetry keeps global UI button click counters.
package telemetry

import (
	"regexp"
	"strings"
	"time"

	"github.com/zenda/zenda/internal/platform/validation"
)

// Counter is stored at buttonClicks/{event}.
type Counter struct {
	Event         string    `json:"event"`
	Count         int64     `json:"count"`
	LastClickedAt time.Time `json:"lastClickedAt"`
}

type ClickForm struct {
	Event string `json:"event" validate:"required,max=100"`
}

// Event names double as document ids, so they are restricted to a safe
// character set.
var eventName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]*$`)

func (f *ClickForm) validate() error {
	f.Event = strings.TrimSpace(f.Event)
	if err := validation.Struct(f); err != nil {
		return err
	}
	if !eventName.MatchString(f.Event) || strings.Contains(f.Event, "..") {
		return validation.Field("event", "may only contain letters, digits and _ . : -")
	}
	return nil
}
