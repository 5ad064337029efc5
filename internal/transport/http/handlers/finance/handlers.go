// Package financehandler serves the reconciliation view and payment
// registration for a record.
package financehandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"incaweb/internal/domain/finance"
	"incaweb/internal/remote"
	"incaweb/internal/session"
	"incaweb/internal/transport/http/middleware"
	"incaweb/internal/transport/http/shared"
	"incaweb/internal/transport/http/views"
)

type Handler struct {
	API      *remote.Client
	Sessions *session.Store
	Views    *views.Renderer
	Inflight *shared.InflightGuard
}

func NewHandler(api *remote.Client, sessions *session.Store, renderer *views.Renderer, guard *shared.InflightGuard) *Handler {
	return &Handler{API: api, Sessions: sessions, Views: renderer, Inflight: guard}
}

// RegisterRoutes mounts the finance views on the /incapacities subtree.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/{incapacityID}/finance", h.handleReconciliation)
	r.Post("/{incapacityID}/payments", h.handleRegisterPayment)
}

// handleReconciliation shows the server-computed expected/paid/balance
// summary. The summary is refetched on every request; nothing financial is
// cached client-side.
func (h *Handler) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Redirect(w, r, "/incapacities?error="+url.QueryEscape("Unknown record."), http.StatusSeeOther)
		return
	}

	record, err := h.API.GetIncapacity(r.Context(), id)
	if err != nil {
		slog.Error("incapacity fetch for reconciliation failed", "err", err, "id", id, "requestId", middleware.GetRequestID(r.Context()))
		http.Redirect(w, r, "/incapacities?error="+url.QueryEscape("Could not load the record."), http.StatusSeeOther)
		return
	}

	data := views.FinanceData{Record: record}
	data.Identity = h.Sessions.Current()
	data.Error = r.URL.Query().Get("error")
	data.Notice = r.URL.Query().Get("notice")
	// Preserved inputs after a failed submission.
	data.AmountPaid = r.URL.Query().Get("amount")
	data.PaymentDate = r.URL.Query().Get("date")
	data.ReferenceNum = r.URL.Query().Get("ref")
	data.CanRegister = record.Status.AllowsPayment()

	summary, err := h.API.GetReconciliation(r.Context(), id)
	if err != nil {
		slog.Error("reconciliation fetch failed", "err", err, "id", id, "requestId", middleware.GetRequestID(r.Context()))
		data.LoadFailed = true
		h.Views.Render(w, "finance", data)
		return
	}
	data.Summary = summary
	h.Views.Render(w, "finance", data)
}

func (h *Handler) handleRegisterPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Redirect(w, r, "/incapacities?error="+url.QueryEscape("Unknown record."), http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, financePath(id, url.Values{"error": {"The submitted form could not be read."}}), http.StatusSeeOther)
		return
	}

	amount := r.PostFormValue("amount_paid")
	paymentDate := r.PostFormValue("payment_date")
	reference := r.PostFormValue("reference_number")
	failure := func(message string) {
		// Inputs ride along so the re-rendered form keeps what was typed.
		http.Redirect(w, r, financePath(id, url.Values{
			"error":  {message},
			"amount": {amount},
			"date":   {paymentDate},
			"ref":    {reference},
		}), http.StatusSeeOther)
	}

	if r.PostFormValue("confirm") != "yes" {
		failure("Confirm the payment before submitting.")
		return
	}

	// Re-check the status gate against fresh server state; the server still
	// re-validates on its side.
	record, err := h.API.GetIncapacity(r.Context(), id)
	if err != nil {
		failure("Could not load the record.")
		return
	}
	if !record.Status.AllowsPayment() {
		failure("Payments cannot be registered while the record is reported or rejected.")
		return
	}

	parsedAmount, err := strconv.ParseFloat(amount, 64)
	if err != nil || parsedAmount <= 0 {
		failure("The amount must be a positive number.")
		return
	}
	if _, err := shared.ParseDate(paymentDate); err != nil {
		failure("The payment date must be a valid date.")
		return
	}
	if reference == "" {
		failure("The reference number is required.")
		return
	}

	key := fmt.Sprintf("payment:%d", id)
	if !h.Inflight.TryAcquire(key) {
		failure("A payment for this record is already being registered.")
		return
	}
	defer h.Inflight.Release(key)

	payment := finance.Payment{
		Incapacity:      id,
		AmountPaid:      parsedAmount,
		PaymentDate:     paymentDate,
		ReferenceNumber: reference,
	}
	if err := h.API.RegisterPayment(r.Context(), payment); err != nil {
		slog.Error("payment registration failed", "err", err, "id", id)
		failure(paymentErrorMessage(err))
		return
	}

	// Success clears the inputs and refetches the summary: plain redirect.
	http.Redirect(w, r, financePath(id, url.Values{"notice": {"Payment registered."}}), http.StatusSeeOther)
}

// paymentErrorMessage unpacks the server's structured error body in display
// precedence, falling back to a connectivity message when the response had
// no recognizable shape.
func paymentErrorMessage(err error) string {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return "Connection error while registering the payment."
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "incapacityID"), 10, 64)
}

func financePath(id int64, params url.Values) string {
	path := fmt.Sprintf("/incapacities/%d/finance", id)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return path
}
