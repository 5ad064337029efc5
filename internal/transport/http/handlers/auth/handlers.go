// Package authhandler serves the login and logout views.
package authhandler

import (
	"net/http"

	"incaweb/internal/session"
	"incaweb/internal/transport/http/views"
)

type Handler struct {
	Sessions *session.Store
	Views    *views.Renderer
}

func NewHandler(sessions *session.Store, renderer *views.Renderer) *Handler {
	return &Handler{Sessions: sessions, Views: renderer}
}

func (h *Handler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	if h.Sessions.Current() != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	data := views.LoginData{}
	data.Error = r.URL.Query().Get("error")
	h.Views.Render(w, "login", data)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	result := h.Sessions.Login(r.Context(), username, password)
	if !result.Success {
		data := views.LoginData{Username: username}
		data.Error = result.Message
		h.Views.Render(w, "login", data)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout()
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
