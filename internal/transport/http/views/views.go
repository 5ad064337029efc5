// Package views renders the console's HTML pages from embedded templates.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"incaweb/internal/domain/auth"
	"incaweb/internal/domain/finance"
	"incaweb/internal/domain/incapacity"
	"incaweb/internal/remote"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"money": func(v float64) string {
		return fmt.Sprintf("$%.2f", v)
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "—"
		}
		return t.Format("2006-01-02 15:04")
	},
}

type Renderer struct {
	pages map[string]*template.Template
}

// New parses each page template against the shared base layout.
func New() (*Renderer, error) {
	pages := map[string]*template.Template{}
	names := []string{"login", "dashboard", "list", "detail", "form", "finance"}
	for _, name := range names {
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(files,
			"templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

func (r *Renderer) Render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := r.pages[page]
	if !ok {
		slog.Error("unknown template", "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("render failed", "page", page, "err", err)
	}
}

// Base carries what every page shows: the operator and any flash messages.
type Base struct {
	Identity *auth.Identity
	Error    string
	Notice   string
}

type LoginData struct {
	Base
	Username string
}

type DashboardData struct {
	Base
	Stats       remote.DashboardStats
	StatsFailed bool
}

type ListData struct {
	Base
	Records    []incapacity.Incapacity
	Tally      incapacity.Tally
	SearchTerm string
	Status     string
	Statuses   []incapacity.Status
	LoadFailed bool
}

type DetailData struct {
	Base
	Record      incapacity.Incapacity
	Observation string
	CanManage   bool
}

type FormData struct {
	Base
	Types  []incapacity.Type
	Values FormValues
	Issues []FormIssue
}

// FormValues echoes the submitted inputs back so a rejected form does not
// lose what the user typed.
type FormValues struct {
	Type          string
	DiagnosisCode string
	StartDate     string
	EndDate       string
	Days          string
	EntityName    string
	IBCValue      string
}

type FormIssue struct {
	Field  string
	Reason string
}

type FinanceData struct {
	Base
	Record       incapacity.Incapacity
	Summary      finance.ReconciliationSummary
	LoadFailed   bool
	CanRegister  bool
	AmountPaid   string
	PaymentDate  string
	ReferenceNum string
}
