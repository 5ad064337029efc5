// Package incapacityhandler serves the record list, the creation form, the
// detail/workflow view and the PDF export.
package incapacityhandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"incaweb/internal/domain/incapacity"
	"incaweb/internal/remote"
	"incaweb/internal/session"
	"incaweb/internal/transport/http/middleware"
	"incaweb/internal/transport/http/shared"
	"incaweb/internal/transport/http/views"
)

const maxUploadBytes = 16 << 20

type Handler struct {
	API      *remote.Client
	Sessions *session.Store
	Views    *views.Renderer
	Inflight *shared.InflightGuard
}

func NewHandler(api *remote.Client, sessions *session.Store, renderer *views.Renderer, guard *shared.InflightGuard) *Handler {
	return &Handler{API: api, Sessions: sessions, Views: renderer, Inflight: guard}
}

// RegisterRoutes mounts the record views on the /incapacities subtree.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/new", h.handleNewForm)
	r.Post("/", h.handleCreate)
	r.Get("/{incapacityID}", h.handleDetail)
	r.Post("/{incapacityID}/status", h.handleChangeStatus)
	r.Get("/{incapacityID}/export", h.handleExport)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	data := views.ListData{}
	data.Identity = h.Sessions.Current()
	data.Error = r.URL.Query().Get("error")
	data.Notice = r.URL.Query().Get("notice")
	data.SearchTerm = r.URL.Query().Get("q")
	data.Status = r.URL.Query().Get("status")
	if data.Status == "" {
		data.Status = incapacity.StatusFilterAll
	}
	data.Statuses = incapacity.Statuses()

	records, err := h.API.ListIncapacities(r.Context())
	if err != nil {
		slog.Error("incapacity list fetch failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		data.LoadFailed = true
		h.Views.Render(w, "list", data)
		return
	}

	data.Tally = incapacity.CountByStatus(records)
	data.Records = incapacity.Filter(records, data.SearchTerm, data.Status)
	h.Views.Render(w, "list", data)
}

func (h *Handler) handleNewForm(w http.ResponseWriter, r *http.Request) {
	data := views.FormData{Types: incapacity.Types()}
	data.Identity = h.Sessions.Current()
	h.Views.Render(w, "form", data)
}

// handleCreate runs the two-phase save: create the record from structured
// fields, then upload the optional attachment against the new id. A failed
// upload leaves the record in place; there is no rollback and no retry.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.renderFormError(w, views.FormValues{}, nil, "The submitted form could not be read.")
		return
	}

	values := views.FormValues{
		Type:          r.PostFormValue("incapacity_type"),
		DiagnosisCode: strings.TrimSpace(r.PostFormValue("diagnosis_code")),
		StartDate:     r.PostFormValue("start_date"),
		EndDate:       r.PostFormValue("end_date"),
		Days:          strings.TrimSpace(r.PostFormValue("days")),
		EntityName:    strings.TrimSpace(r.PostFormValue("entity_name")),
		IBCValue:      strings.TrimSpace(r.PostFormValue("ibc_value")),
	}

	validator := shared.NewValidator()
	typeValues := make([]string, 0, len(incapacity.Types()))
	for _, t := range incapacity.Types() {
		typeValues = append(typeValues, string(t))
	}
	validator.Required("incapacity_type", values.Type, "leave type is required")
	validator.Enum("incapacity_type", values.Type, typeValues, "unknown leave type")
	validator.Required("diagnosis_code", values.DiagnosisCode, "diagnosis code is required")
	validator.Required("entity_name", values.EntityName, "insuring entity is required")
	start, startOK := validator.Date("start_date", values.StartDate)
	end, endOK := validator.Date("end_date", values.EndDate)
	if startOK && endOK {
		validator.DateOrder("start_date", start, "end_date", end)
	}

	ibc := 0.0
	if values.IBCValue != "" {
		parsed, err := strconv.ParseFloat(values.IBCValue, 64)
		if err != nil || parsed < 0 {
			validator.Add("ibc_value", "must be a non-negative amount")
		} else {
			ibc = parsed
		}
	} else {
		validator.Add("ibc_value", "base salary is required")
	}

	// The derived span is only the default: a manually entered value wins,
	// even when it disagrees with the dates.
	days := 0
	if values.Days != "" {
		parsed, err := strconv.Atoi(values.Days)
		if err != nil || parsed < 1 {
			validator.Add("days", "must be a positive whole number")
		} else {
			days = parsed
		}
	} else if derived, ok := incapacity.DeriveDays(values.StartDate, values.EndDate); ok {
		days = derived
	} else {
		validator.Add("days", "day count is required when it cannot be derived from the dates")
	}

	if validator.HasIssues() {
		issues := make([]views.FormIssue, 0, len(validator.Issues()))
		for _, issue := range validator.Issues() {
			issues = append(issues, views.FormIssue{Field: issue.Field, Reason: issue.Reason})
		}
		h.renderFormIssues(w, values, issues)
		return
	}

	input := remote.CreateIncapacityInput{
		Type:          values.Type,
		DiagnosisCode: values.DiagnosisCode,
		StartDate:     values.StartDate,
		EndDate:       values.EndDate,
		Days:          days,
		EntityName:    values.EntityName,
		IBCValue:      strconv.FormatFloat(ibc, 'f', 2, 64),
	}

	created, err := h.API.CreateIncapacity(r.Context(), input)
	if err != nil {
		slog.Error("incapacity create failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		h.renderFormError(w, values, nil, saveErrorMessage(err))
		return
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		http.Redirect(w, r, detailPath(created.ID, url.Values{"notice": {"Incapacity reported."}}), http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Warn("attachment unreadable after create", "err", err, "incapacity", created.ID)
		http.Redirect(w, r, detailPath(created.ID, url.Values{"error": {"The record was saved but the attachment could not be read."}}), http.StatusSeeOther)
		return
	}
	defer file.Close()

	if _, err := h.API.UploadDocument(r.Context(), created.ID, incapacity.DocTypeCertificate, header.Filename, file); err != nil {
		// Phase two failed: the record exists with no document. Surfaced as a
		// save error; the operator re-uploads by hand.
		slog.Error("document upload failed after create", "err", err, "incapacity", created.ID)
		http.Redirect(w, r, detailPath(created.ID, url.Values{"error": {"The record was saved but the document upload failed."}}), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, detailPath(created.ID, url.Values{"notice": {"Incapacity reported."}}), http.StatusSeeOther)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Redirect(w, r, "/incapacities?error="+url.QueryEscape("Unknown record."), http.StatusSeeOther)
		return
	}

	record, err := h.API.GetIncapacity(r.Context(), id)
	if err != nil {
		slog.Error("incapacity fetch failed", "err", err, "id", id, "requestId", middleware.GetRequestID(r.Context()))
		http.Redirect(w, r, "/incapacities?error="+url.QueryEscape("Could not load the record."), http.StatusSeeOther)
		return
	}

	data := views.DetailData{Record: record}
	data.Identity = h.Sessions.Current()
	data.Error = r.URL.Query().Get("error")
	data.Notice = r.URL.Query().Get("notice")
	data.Observation = r.URL.Query().Get("observation")
	if data.Identity != nil {
		data.CanManage = data.Identity.Role.CanManageIncapacities()
	}
	h.Views.Render(w, "detail", data)
}

// handleChangeStatus submits a workflow transition and then redirects back
// to the detail view, which refetches the record: the displayed status and
// history are always server truth, never an optimistic patch.
func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Redirect(w, r, "/incapacities?error="+url.QueryEscape("Unknown record."), http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, detailPath(id, url.Values{"error": {"The submitted form could not be read."}}), http.StatusSeeOther)
		return
	}

	observation := r.PostFormValue("observation")
	failure := func(message string) {
		// On failure the typed observation is preserved for another attempt.
		http.Redirect(w, r, detailPath(id, url.Values{
			"error":       {message},
			"observation": {observation},
		}), http.StatusSeeOther)
	}

	identity := h.Sessions.Current()
	if identity == nil || !identity.Role.CanManageIncapacities() {
		failure("Your role cannot change the record status.")
		return
	}
	if r.PostFormValue("confirm") != "yes" {
		failure("Confirm the status change before submitting.")
		return
	}

	var target incapacity.Status
	switch r.PostFormValue("action") {
	case "approve":
		target = incapacity.TransitionApprove
	case "reject":
		target = incapacity.TransitionReject
	default:
		failure("Unknown workflow action.")
		return
	}

	key := fmt.Sprintf("status:%d", id)
	if !h.Inflight.TryAcquire(key) {
		failure("A status change for this record is already in progress.")
		return
	}
	defer h.Inflight.Release(key)

	if err := h.API.ChangeStatus(r.Context(), id, target, observation); err != nil {
		slog.Error("status change failed", "err", err, "id", id, "target", target)
		failure("The status change could not be saved.")
		return
	}

	// Success clears the observation: redirect without it.
	http.Redirect(w, r, detailPath(id, url.Values{"notice": {"Status updated to " + target.Label() + "."}}), http.StatusSeeOther)
}

func (h *Handler) renderFormIssues(w http.ResponseWriter, values views.FormValues, issues []views.FormIssue) {
	data := views.FormData{Types: incapacity.Types(), Values: values, Issues: issues}
	data.Identity = h.Sessions.Current()
	h.Views.Render(w, "form", data)
}

func (h *Handler) renderFormError(w http.ResponseWriter, values views.FormValues, issues []views.FormIssue, message string) {
	data := views.FormData{Types: incapacity.Types(), Values: values, Issues: issues}
	data.Identity = h.Sessions.Current()
	data.Error = message
	h.Views.Render(w, "form", data)
}

func saveErrorMessage(err error) string {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return "The record could not be saved. Try again."
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "incapacityID"), 10, 64)
}

func detailPath(id int64, params url.Values) string {
	path := fmt.Sprintf("/incapacities/%d", id)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return path
}
