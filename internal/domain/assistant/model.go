package assistant

import (
	"strings"
	"time"
)

const (
	FormatSOAP = "SOAP"
	FormatDAP  = "DAP"

	PromptReformatSOAP   = "reformat_soap"
	PromptReformatDAP    = "reformat_dap"
	PromptSummarize      = "summarize"
	PromptProgressReport = "progress_report"
)

type ReformatInput struct {
	Text   string `json:"text" validate:"required,max=20000"`
	Format string `json:"format" validate:"required,oneof=SOAP DAP"`
}

type SOAPNote struct {
	Subjective string `json:"subjective" validate:"required"`
	Objective  string `json:"objective" validate:"required"`
	Assessment string `json:"assessment" validate:"required"`
	Plan       string `json:"plan" validate:"required"`
}

type DAPNote struct {
	Data       string `json:"data" validate:"required"`
	Assessment string `json:"assessment" validate:"required"`
	Plan       string `json:"plan" validate:"required"`
}

// ReformatOutput carries exactly one of SOAP or DAP plus the note rendered
// as plain text.
type ReformatOutput struct {
	Format  string    `json:"format"`
	SOAP    *SOAPNote `json:"soap,omitempty"`
	DAP     *DAPNote  `json:"dap,omitempty"`
	Content string    `json:"content"`
}

func renderSOAP(n *SOAPNote) string {
	return section("S (Subjetivo)", n.Subjective) +
		section("O (Objetivo)", n.Objective) +
		section("A (Evaluación)", n.Assessment) +
		strings.TrimRight(section("P (Plan)", n.Plan), "\n")
}

func renderDAP(n *DAPNote) string {
	return section("D (Datos)", n.Data) +
		section("A (Evaluación)", n.Assessment) +
		strings.TrimRight(section("P (Plan)", n.Plan), "\n")
}

func section(title, body string) string {
	return title + ":\n" + strings.TrimSpace(body) + "\n\n"
}

type SummarizeInput struct {
	Text string `json:"text" validate:"required,max=20000"`
}

type Summary struct {
	Summary   string   `json:"summary" validate:"required"`
	KeyPoints []string `json:"keyPoints" validate:"required,min=1,dive,required"`
}

// NoteExcerpt is one note fed into a progress report.
type NoteExcerpt struct {
	Title   string    `json:"title"`
	Date    time.Time `json:"date"`
	Content string    `json:"content" validate:"required"`
}

type ProgressInput struct {
	PatientName string        `json:"patientName" validate:"required,max=200"`
	Notes       []NoteExcerpt `json:"notes" validate:"required,min=1,max=200,dive"`
	From        *time.Time    `json:"from,omitempty"`
	To          *time.Time    `json:"to,omitempty"`
}

type ProgressReport struct {
	Summary         string   `json:"summary" validate:"required"`
	Progress        string   `json:"progress" validate:"required"`
	Recommendations []string `json:"recommendations" validate:"required,min=1,dive,required"`
}
