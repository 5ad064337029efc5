package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"incaweb/internal/app/server"
	"incaweb/internal/domain/incapacity"
	"incaweb/internal/platform/config"
)

// fakeRemote emulates the incapacity server: the same endpoints, the same
// JSON shapes, enough state to walk the journeys end to end.
type fakeRemote struct {
	*httptest.Server

	mu           sync.Mutex
	roles        map[string]string
	records      map[int64]incapacity.Incapacity
	nextID       int64
	failUploads  bool
	uploadCount  int
	statusPosts  map[int64][]string
	paymentCode  int
	paymentBody  string
	paymentCount int
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	f := &fakeRemote{
		roles:       map[string]string{},
		records:     map[int64]incapacity.Incapacity{},
		nextID:      100,
		statusPosts: map[int64][]string{},
		paymentCode: http.StatusCreated,
		paymentBody: `{}`,
	}

	r := chi.NewRouter()
	r.Post("/token/", f.handleToken)
	r.Get("/incapacities/", f.handleList)
	r.Post("/incapacities/", f.handleCreate)
	r.Get("/incapacities/dashboard_stats/", f.handleStats)
	r.Get("/incapacities/{id}/", f.handleGet)
	r.Post("/incapacities/{id}/change_status/", f.handleChangeStatus)
	r.Post("/documents/", f.handleUpload)
	r.Get("/finance/reconciliation/{id}/", f.handleReconciliation)
	r.Post("/finance/", f.handlePayment)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeRemote) seed(record incapacity.Incapacity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = record
}

func (f *fakeRemote) handleToken(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Password != "s3cret" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "No active account found with the given credentials"}`))
		return
	}

	f.mu.Lock()
	role := f.roles[creds.Username]
	f.mu.Unlock()
	if role == "" {
		role = "ADMIN"
	}

	claims := jwt.MapClaims{
		"username": creds.Username,
		"role":     role,
		"user_id":  float64(1),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("emulator-secret"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"access": access, "refresh": "refresh-" + creds.Username})
}

func (f *fakeRemote) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	records := make([]incapacity.Incapacity, 0, len(f.records))
	for _, record := range f.records {
		records = append(records, record)
	}
	f.mu.Unlock()
	writeJSON(w, records)
}

func (f *fakeRemote) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Type          string `json:"incapacity_type"`
		DiagnosisCode string `json:"diagnosis_code"`
		StartDate     string `json:"start_date"`
		EndDate       string `json:"end_date"`
		Days          int    `json:"days"`
		EntityName    string `json:"entity_name"`
		IBCValue      string `json:"ibc_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.nextID++
	ibc, _ := strconv.ParseFloat(input.IBCValue, 64)
	record := incapacity.Incapacity{
		ID:            f.nextID,
		Employee:      1,
		EmployeeName:  "Console User",
		Type:          incapacity.Type(input.Type),
		DiagnosisCode: input.DiagnosisCode,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Days:          input.Days,
		EntityName:    input.EntityName,
		IBCValue:      ibc,
		Status:        incapacity.StatusReported,
		CreatedAt:     time.Now(),
	}
	f.records[record.ID] = record
	f.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, record)
}

func (f *fakeRemote) handleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	f.mu.Lock()
	record, ok := f.records[id]
	f.mu.Unlock()
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Not found."}`))
		return
	}
	writeJSON(w, record)
}

func (f *fakeRemote) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var payload struct {
		Status      string `json:"status"`
		Observation string `json:"observation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.statusPosts[id] = append(f.statusPosts[id], payload.Status)
	if record, ok := f.records[id]; ok {
		record.Status = incapacity.Status(payload.Status)
		f.records[id] = record
	}
	f.mu.Unlock()
	writeJSON(w, map[string]string{"new_status": payload.Status})
}

func (f *fakeRemote) handleStats(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	total := len(f.records)
	f.mu.Unlock()
	writeJSON(w, map[string]int{"total": total, "pending": 0, "in_process": 0, "paid": 0, "rejected": 0})
}

func (f *fakeRemote) handleUpload(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	fail := f.failUploads
	f.mu.Unlock()
	if fail {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail": "storage unavailable"}`))
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	incapacityID, _ := strconv.ParseInt(r.FormValue("incapacity"), 10, 64)
	f.mu.Lock()
	f.uploadCount++
	f.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]any{"id": 1, "incapacity": incapacityID, "document_type": r.FormValue("document_type")})
}

func (f *fakeRemote) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"expected_amount": "100000.00",
		"paid_amount":     "40000.00",
		"balance":         "60000.00",
		"status":          "PARTIAL",
	})
}

func (f *fakeRemote) handlePayment(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	code, body := f.paymentCode, f.paymentBody
	if code >= 200 && code <= 299 {
		f.paymentCount++
	}
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

// newConsole starts the console against the fake server. The returned client
// does not follow redirects, so tests can inspect every Location header.
func newConsole(t *testing.T, fake *fakeRemote) (string, *http.Client) {
	t.Helper()
	cfg := config.Config{
		Addr:           ":0",
		APIBaseURL:     fake.URL,
		StorePath:      filepath.Join(t.TempDir(), "console.db"),
		Environment:    "test",
		RequestTimeout: 5 * time.Second,
	}

	app, err := server.New(cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return ts.URL, client
}

func login(t *testing.T, client *http.Client, baseURL, username, password string) {
	t.Helper()
	resp, err := client.PostForm(baseURL+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/dashboard" {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("login as %s did not succeed: status %d, body %s", username, resp.StatusCode, body)
	}
}

func postForm(t *testing.T, client *http.Client, target string, values url.Values) *http.Response {
	t.Helper()
	resp, err := client.PostForm(target, values)
	if err != nil {
		t.Fatalf("POST %s failed: %v", target, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func redirectQuery(t *testing.T, resp *http.Response) (string, url.Values) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected a redirect, got status %d, body %s", resp.StatusCode, body)
	}
	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("unparseable Location %q: %v", resp.Header.Get("Location"), err)
	}
	return location.Path, location.Query()
}

func reportForm(t *testing.T, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := map[string]string{
		"incapacity_type": "EG",
		"diagnosis_code":  "A09X",
		"start_date":      "2024-05-01",
		"end_date":        "2024-05-05",
		"entity_name":     "EPS Sura",
		"ibc_value":       "2500000",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	if withFile {
		part, err := writer.CreateFormFile("file", "certificate.pdf")
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		_, _ = part.Write([]byte("certificate bytes"))
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestAnonymousVisitorIsRedirectedToLogin(t *testing.T) {
	fake := newFakeRemote(t)
	baseURL, client := newConsole(t, fake)

	for _, path := range []string{"/", "/dashboard", "/incapacities", "/incapacities/1/finance"} {
		resp, err := client.Get(baseURL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
			t.Errorf("GET %s: status %d, location %q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
}

func TestLoginJourney(t *testing.T) {
	fake := newFakeRemote(t)
	fake.roles["mrodriguez"] = "RRHH"
	baseURL, client := newConsole(t, fake)

	resp := postForm(t, client, baseURL+"/login", url.Values{
		"username": {"mrodriguez"},
		"password": {"wrong"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("failed login status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Invalid username or password") {
		t.Error("failed login page does not show the rejection message")
	}
	if !strings.Contains(string(body), "mrodriguez") {
		t.Error("failed login page does not keep the typed username")
	}

	login(t, client, baseURL, "mrodriguez", "s3cret")

	dash, err := client.Get(baseURL + "/dashboard")
	if err != nil {
		t.Fatalf("GET /dashboard failed: %v", err)
	}
	defer dash.Body.Close()
	if dash.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", dash.StatusCode)
	}
}

func TestReportIncapacityJourney(t *testing.T) {
	fake := newFakeRemote(t)
	baseURL, client := newConsole(t, fake)
	login(t, client, baseURL, "admin", "s3cret")

	form, contentType := reportForm(t, true)
	resp, err := client.Post(baseURL+"/incapacities", contentType, form)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer resp.Body.Close()

	path, query := redirectQuery(t, resp)
	if !strings.HasPrefix(path, "/incapacities/") {
		t.Fatalf("redirect path = %q", path)
	}
	if query.Get("notice") == "" || query.Get("error") != "" {
		t.Errorf("redirect query = %v, expected a success notice", query)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.records) != 1 {
		t.Fatalf("record count = %d", len(fake.records))
	}
	for _, record := range fake.records {
		if record.Days != 5 {
			t.Errorf("days = %d, expected the derived inclusive span", record.Days)
		}
	}
	if fake.uploadCount != 1 {
		t.Errorf("upload count = %d", fake.uploadCount)
	}
}

func TestCreateSurvivesFailedUpload(t *testing.T) {
	fake := newFakeRemote(t)
	fake.failUploads = true
	baseURL, client := newConsole(t, fake)
	login(t, client, baseURL, "admin", "s3cret")

	form, contentType := reportForm(t, true)
	resp, err := client.Post(baseURL+"/incapacities", contentType, form)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer resp.Body.Close()

	path, query := redirectQuery(t, resp)
	if !strings.HasPrefix(path, "/incapacities/") {
		t.Fatalf("redirect path = %q", path)
	}
	if !strings.Contains(query.Get("error"), "document upload failed") {
		t.Errorf("error = %q", query.Get("error"))
	}

	// The record survives the failed upload; nothing is rolled back.
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.records) != 1 {
		t.Errorf("record count = %d, the created record must remain", len(fake.records))
	}
	if fake.uploadCount != 0 {
		t.Errorf("upload count = %d", fake.uploadCount)
	}
}

func TestStatusChangeJourney(t *testing.T) {
	fake := newFakeRemote(t)
	fake.roles["mrodriguez"] = "RRHH"
	fake.roles["jperez"] = "LEADER"
	fake.seed(incapacity.Incapacity{
		ID: 7, EmployeeName: "Laura Gomez", Type: incapacity.TypeGeneralIllness,
		StartDate: "2024-05-01", EndDate: "2024-05-05", Days: 5,
		Status: incapacity.StatusReported,
	})
	baseURL, client := newConsole(t, fake)

	login(t, client, baseURL, "jperez", "s3cret")
	resp := postForm(t, client, baseURL+"/incapacities/7/status", url.Values{
		"action":  {"approve"},
		"confirm": {"yes"},
	})
	if _, query := redirectQuery(t, resp); !strings.Contains(query.Get("error"), "role") {
		t.Errorf("leader submission error = %q", query.Get("error"))
	}

	login(t, client, baseURL, "mrodriguez", "s3cret")
	resp = postForm(t, client, baseURL+"/incapacities/7/status", url.Values{
		"action":      {"approve"},
		"observation": {"filed under EPS case 443"},
	})
	if _, query := redirectQuery(t, resp); !strings.Contains(query.Get("error"), "Confirm") {
		t.Errorf("unconfirmed submission error = %q", query.Get("error"))
	} else if query.Get("observation") != "filed under EPS case 443" {
		t.Error("typed observation was not preserved on failure")
	}

	resp = postForm(t, client, baseURL+"/incapacities/7/status", url.Values{
		"action":      {"approve"},
		"confirm":     {"yes"},
		"observation": {"filed under EPS case 443"},
	})
	_, query := redirectQuery(t, resp)
	if query.Get("notice") == "" {
		t.Errorf("confirmed submission query = %v", query)
	}
	if query.Get("observation") != "" {
		t.Error("observation must be cleared after success")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if posts := fake.statusPosts[7]; len(posts) != 1 || posts[0] != "TRANSCRIBED" {
		t.Errorf("status posts = %v", posts)
	}
}

func TestPaymentRegistrationJourney(t *testing.T) {
	fake := newFakeRemote(t)
	fake.roles["tesorera"] = "TREASURY"
	fake.seed(incapacity.Incapacity{
		ID: 9, EmployeeName: "Laura Gomez", Type: incapacity.TypeGeneralIllness,
		Status: incapacity.StatusReported,
	})
	baseURL, client := newConsole(t, fake)
	login(t, client, baseURL, "tesorera", "s3cret")

	payment := url.Values{
		"amount_paid":      {"40000"},
		"payment_date":     {"2024-06-01"},
		"reference_number": {"TRX-991"},
		"confirm":          {"yes"},
	}

	// Reported records cannot receive payments.
	resp := postForm(t, client, baseURL+"/incapacities/9/payments", payment)
	if _, query := redirectQuery(t, resp); !strings.Contains(query.Get("error"), "reported or rejected") {
		t.Errorf("gate error = %q", query.Get("error"))
	}

	fake.seed(incapacity.Incapacity{ID: 9, EmployeeName: "Laura Gomez", Status: incapacity.StatusAuthorized})

	// Server-side rejection surfaces the general message, not the detail.
	fake.mu.Lock()
	fake.paymentCode = http.StatusBadRequest
	fake.paymentBody = `{"non_field_errors": ["The payment exceeds the balance."], "detail": "Bad request."}`
	fake.mu.Unlock()
	resp = postForm(t, client, baseURL+"/incapacities/9/payments", payment)
	_, query := redirectQuery(t, resp)
	if query.Get("error") != "The payment exceeds the balance." {
		t.Errorf("error = %q", query.Get("error"))
	}
	if query.Get("amount") != "40000" || query.Get("ref") != "TRX-991" {
		t.Errorf("typed inputs were not preserved: %v", query)
	}

	fake.mu.Lock()
	fake.paymentCode = http.StatusCreated
	fake.paymentBody = `{}`
	fake.mu.Unlock()
	resp = postForm(t, client, baseURL+"/incapacities/9/payments", payment)
	if _, query := redirectQuery(t, resp); query.Get("notice") == "" {
		t.Errorf("success query = %v", query)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.paymentCount != 1 {
		t.Errorf("payment count = %d", fake.paymentCount)
	}
}

func TestFinanceViewShowsReconciliation(t *testing.T) {
	fake := newFakeRemote(t)
	fake.seed(incapacity.Incapacity{
		ID: 3, EmployeeName: "Laura Gomez", Type: incapacity.TypeGeneralIllness,
		Status: incapacity.StatusInProcess,
	})
	baseURL, client := newConsole(t, fake)
	login(t, client, baseURL, "admin", "s3cret")

	resp, err := client.Get(baseURL + "/incapacities/3/finance")
	if err != nil {
		t.Fatalf("GET finance failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finance status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, amount := range []string{"100000.00", "40000.00", "60000.00"} {
		if !strings.Contains(string(body), fmt.Sprintf("$%s", amount)) {
			t.Errorf("finance view missing amount $%s", amount)
		}
	}
}
