package remote

// TokenPair is the credential pair issued by POST token/.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// CreateIncapacityInput carries the structured fields of a new record. The
// server assigns the reporting employee from the authenticated user. The
// IBC value travels as a string because the server serializes decimals that
// way.
type CreateIncapacityInput struct {
	Type          string `json:"incapacity_type"`
	DiagnosisCode string `json:"diagnosis_code"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Days          int    `json:"days"`
	EntityName    string `json:"entity_name"`
	IBCValue      string `json:"ibc_value"`
}

// DashboardStats is the aggregate counter payload from
// GET incapacities/dashboard_stats/.
type DashboardStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	InProcess int `json:"in_process"`
	Paid      int `json:"paid"`
	Rejected  int `json:"rejected"`
}

type changeStatusRequest struct {
	Status      string `json:"status"`
	Observation string `json:"observation"`
}
