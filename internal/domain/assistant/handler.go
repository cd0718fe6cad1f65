package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zenda/zenda/internal/domain/note"
	"github.com/zenda/zenda/internal/domain/patient"
	"github.com/zenda/zenda/internal/platform/auth"
	"github.com/zenda/zenda/internal/platform/validation"
)

// maxReportNotes caps how many notes feed one progress report.
const maxReportNotes = 200

// NoteStore is the part of the note service the handlers use.
type NoteStore interface {
	Create(ctx context.Context, uid, patientID string, form note.Form) (*note.Note, error)
	List(ctx context.Context, uid, patientID string, f note.ListFilter, limit, offset int) ([]*note.Note, int, error)
}

type PatientLookup interface {
	Get(ctx context.Context, uid, id string) (*patient.Patient, error)
}

type Handler struct {
	svc      *Service
	notes    NoteStore
	patients PatientLookup
}

func NewHandler(svc *Service, notes NoteStore, patients PatientLookup) *Handler {
	return &Handler{svc: svc, notes: notes, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/ai/reformat", h.Reformat)
	api.POST("/ai/summarize", h.Summarize)
	api.POST("/patients/:id/progress-report", h.ProgressReport)
}

func httpError(err error) error {
	if errors.Is(err, ErrUpstream) {
		return echo.NewHTTPError(http.StatusBadGateway, "AI provider request failed").SetInternal(err)
	}
	return patient.HTTPError(err)
}

// saveOptions store a flow result as a Texto note when Save is set.
type saveOptions struct {
	PatientID string `json:"patientId"`
	Save      bool   `json:"save"`
	Title     string `json:"title"`
}

func (o saveOptions) validate() error {
	if o.Save && strings.TrimSpace(o.PatientID) == "" {
		return validation.Field("patientId", "is required when save is set")
	}
	return nil
}

func (h *Handler) save(ctx context.Context, uid string, o saveOptions, defaultTitle, content string) (*note.Note, error) {
	if !o.Save {
		return nil, nil
	}
	title := strings.TrimSpace(o.Title)
	if title == "" {
		title = defaultTitle
	}
	return h.notes.Create(ctx, uid, o.PatientID, note.Form{Title: title, Type: note.TypeText, Content: content})
}

type reformatRequest struct {
	ReformatInput
	saveOptions
}

type flowResponse struct {
	Result interface{} `json:"result"`
	Note   *note.Note  `json:"note,omitempty"`
}

func (h *Handler) Reformat(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var req reformatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.saveOptions.validate(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	out, err := h.svc.ReformatNote(ctx, req.ReformatInput)
	if err != nil {
		return httpError(err)
	}
	n, err := h.save(ctx, uid, req.saveOptions, "Nota "+out.Format, out.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, flowResponse{Result: out, Note: n})
}

type summarizeRequest struct {
	SummarizeInput
	saveOptions
}

func summaryContent(s *Summary) string {
	var b strings.Builder
	b.WriteString(s.Summary)
	b.WriteString("\n")
	for _, kp := range s.KeyPoints {
		b.WriteString("\n- ")
		b.WriteString(kp)
	}
	return b.String()
}

func (h *Handler) Summarize(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var req summarizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.saveOptions.validate(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	out, err := h.svc.Summarize(ctx, req.SummarizeInput)
	if err != nil {
		return httpError(err)
	}
	n, err := h.save(ctx, uid, req.saveOptions, "Resumen", summaryContent(out))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, flowResponse{Result: out, Note: n})
}

type progressRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ProgressReport collects the patient's notes in [from, to) and runs the
// progress report flow over them, oldest first.
func (h *Handler) ProgressReport(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var req progressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	from, err := validation.TimeParam("from", req.From)
	if err != nil {
		return err
	}
	to, err := validation.TimeParam("to", req.To)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	patientID := c.Param("id")
	p, err := h.patients.Get(ctx, uid, patientID)
	if err != nil {
		return httpError(err)
	}

	notes, err := h.collectNotes(ctx, uid, patientID, note.ListFilter{From: from, To: to})
	if err != nil {
		return httpError(err)
	}
	if len(notes) == 0 {
		return validation.Field("notes", "the patient has no notes with content in this range")
	}

	in := ProgressInput{PatientName: p.Name, Notes: notes}
	if !from.IsZero() {
		in.From = &from
	}
	if !to.IsZero() {
		in.To = &to
	}
	out, err := h.svc.ProgressReport(ctx, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patientId": patientID,
		"noteCount": len(notes),
		"report":    out,
	})
}

func (h *Handler) collectNotes(ctx context.Context, uid, patientID string, f note.ListFilter) ([]NoteExcerpt, error) {
	var excerpts []NoteExcerpt
	for offset := 0; offset < maxReportNotes; {
		page, total, err := h.notes.List(ctx, uid, patientID, f, 100, offset)
		if err != nil {
			return nil, err
		}
		for _, n := range page {
			if strings.TrimSpace(n.Content) == "" {
				continue
			}
			excerpts = append(excerpts, NoteExcerpt{Title: n.Title, Date: n.CreatedAt, Content: n.Content})
		}
		offset += len(page)
		if len(page) == 0 || offset >= total {
			break
		}
	}
	if len(excerpts) > maxReportNotes {
		excerpts = excerpts[:maxReportNotes]
	}
	// List is newest first.
	for i, j := 0, len(excerpts)-1; i < j; i, j = i+1, j-1 {
		excerpts[i], excerpts[j] = excerpts[j], excerpts[i]
	}
	return excerpts, nil
}
