// Package reminder sends session reminders through the configured outbound
// webhook. There is no queue and no retry: each dispatch is one attempt.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/platform/validation"
	"github.com/zenda/zenda/internal/platform/webhook"
)

const (
	AudiencePatient      = "patient"
	AudiencePsychologist = "psychologist"
	AudienceBoth         = "both"

	StatusSent        = "sent"
	StatusConfigError = "config_error"
	StatusFailed      = "failed"

	EventSessionReminder = "session.reminder"
)

// Input describes one reminder.
type Input struct {
	UserID       string
	PatientName  string
	PatientEmail string
	PatientPhone string
	SessionDate  time.Time
	Audience     string
}

// Result is the outcome reported back to the caller.
type Result struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DeliveryID string `json:"deliveryId,omitempty"`
}

func (r Result) OK() bool { return r.Status == StatusSent }

// Payload is the webhook body.
type Payload struct {
	PatientName    string `json:"patientName"`
	PatientEmail   string `json:"patientEmail"`
	PatientPhone   string `json:"patientPhone"`
	SessionDate    string `json:"sessionDate"`
	RawSessionDate string `json:"rawSessionDate"`
}

type Dispatcher struct {
	sender *webhook.Sender
	url    string
	secret string
	logger zerolog.Logger
}

func NewDispatcher(sender *webhook.Sender, url, secret string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		url:    url,
		secret: secret,
		logger: logger.With().Str("component", "reminder").Logger(),
	}
}

// Dispatch sends the reminder. Only an invalid audience is returned as an
// error; delivery problems are reported in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, in Input) (Result, error) {
	switch in.Audience {
	case AudiencePatient, AudienceBoth:
	case AudiencePsychologist:
		return Result{Status: StatusSent, Message: "Recordatorio registrado para el psicólogo."}, nil
	default:
		return Result{}, validation.Field("audience", "must be one of: patient, psychologist, both")
	}

	if d.url == "" {
		d.logger.Warn().Str("uid", in.UserID).Msg("reminder webhook not configured")
		return Result{Status: StatusConfigError, Message: "El webhook de recordatorios no está configurado."}, nil
	}

	payload := Payload{
		PatientName:    in.PatientName,
		PatientEmail:   in.PatientEmail,
		PatientPhone:   in.PatientPhone,
		SessionDate:    FormatSpanishDate(in.SessionDate),
		RawSessionDate: in.SessionDate.Format(time.RFC3339),
	}

	attempt := d.sender.Send(ctx, webhook.Delivery{
		UserID:    in.UserID,
		EventType: EventSessionReminder,
		URL:       d.url,
		Secret:    d.secret,
		Payload:   payload,
	})

	log := d.logger.With().Str("uid", in.UserID).Str("delivery_id", attempt.ID).Int("status_code", attempt.StatusCode).Logger()
	if !attempt.OK() {
		log.Warn().Str("error", attempt.Error).Msg("reminder delivery failed")
		msg := "No se pudo enviar el recordatorio"
		if attempt.StatusCode != 0 {
			msg = fmt.Sprintf("%s (HTTP %d).", msg, attempt.StatusCode)
		} else {
			msg += "."
		}
		return Result{Status: StatusFailed, Message: msg, DeliveryID: attempt.ID}, nil
	}

	log.Info().Msg("reminder sent")
	return Result{Status: StatusSent, Message: "Recordatorio enviado.", DeliveryID: attempt.ID}, nil
}
