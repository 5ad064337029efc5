package incapacityhandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jung-kurt/gofpdf"

	"incaweb/internal/domain/incapacity"
	"incaweb/internal/transport/http/middleware"
)

// handleExport renders a one-page PDF summary of the record.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Redirect(w, r, "/incapacities?error="+url.QueryEscape("Unknown record."), http.StatusSeeOther)
		return
	}

	record, err := h.API.GetIncapacity(r.Context(), id)
	if err != nil {
		slog.Error("incapacity fetch for export failed", "err", err, "id", id, "requestId", middleware.GetRequestID(r.Context()))
		http.Redirect(w, r, detailPath(id, url.Values{"error": {"Could not export the record."}}), http.StatusSeeOther)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Incapacity INC-%d", record.ID))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", record.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Type: %s", record.Type.Label()))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Diagnosis (CIE-10): %s", record.DiagnosisCode))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s (%d days)", record.StartDate, record.EndDate, record.Days))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Entity: %s", record.EntityName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("IBC: %.2f", record.IBCValue))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", record.Status.Label()))

	if len(record.History) > 0 {
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, "Status history")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, entry := range record.History {
			line := fmt.Sprintf("%s  %s -> %s",
				entry.ChangeDate.Format("2006-01-02 15:04"),
				statusOrDash(entry.PreviousStatus),
				entry.NewStatus.Label())
			if entry.ChangedBy != "" {
				line += " by " + entry.ChangedBy
			}
			pdf.Cell(0, 6, line)
			pdf.Ln(6)
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=incapacity-%d.pdf", record.ID))
	if err := pdf.Output(w); err != nil {
		slog.Error("pdf output failed", "err", err, "id", id)
	}
}

func statusOrDash(s incapacity.Status) string {
	if s == "" {
		return "-"
	}
	return s.Label()
}
