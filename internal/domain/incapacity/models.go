// Package incapacity holds the client-side view of employee medical-leave
// records. Records are owned by the remote server; everything here is a
// transient, re-fetchable snapshot.
package incapacity

import "time"

// Type is the leave-type vocabulary (two-letter codes on the wire).
type Type string

const (
	TypeGeneralIllness    Type = "EG"
	TypeWorkplaceAccident Type = "AL"
	TypeTrafficAccident   Type = "AT"
	TypeMaternity         Type = "LM"
	TypePaternity         Type = "LP"
)

func (t Type) Label() string {
	switch t {
	case TypeGeneralIllness:
		return "General Illness"
	case TypeWorkplaceAccident:
		return "Workplace Accident"
	case TypeTrafficAccident:
		return "Traffic Accident"
	case TypeMaternity:
		return "Maternity Leave"
	case TypePaternity:
		return "Paternity Leave"
	default:
		return "Unknown Type"
	}
}

// Types lists the valid leave types in form order.
func Types() []Type {
	return []Type{TypeGeneralIllness, TypeWorkplaceAccident, TypeTrafficAccident, TypeMaternity, TypePaternity}
}

// Incapacity is one medical-leave record as served by the remote API.
// Dates travel as YYYY-MM-DD strings. Days is stored independently of the
// date span: the server accepts whatever was submitted, so the two can
// disagree.
type Incapacity struct {
	ID            int64                `json:"id"`
	Employee      int64                `json:"employee"`
	EmployeeName  string               `json:"employee_name"`
	Type          Type                 `json:"incapacity_type"`
	DiagnosisCode string               `json:"diagnosis_code"`
	StartDate     string               `json:"start_date"`
	EndDate       string               `json:"end_date"`
	Days          int                  `json:"days"`
	EntityName    string               `json:"entity_name"`
	IBCValue      float64              `json:"ibc_value,string"`
	Status        Status               `json:"status"`
	Documents     []Document           `json:"documents"`
	History       []StatusHistoryEntry `json:"history"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Document is an uploaded support file. Created once, never mutated and
// never deleted by this client.
type Document struct {
	ID         int64     `json:"id"`
	Incapacity int64     `json:"incapacity"`
	Type       string    `json:"document_type"`
	FileURL    string    `json:"file"`
	UploadedAt time.Time `json:"uploaded_at"`
	Approved   bool      `json:"is_approved"`
}

// Known document-type tags. The field is free-form on the wire; these are
// the conventional values.
const (
	DocTypeCertificate = "CERT"
	DocTypeEpicrisis   = "EPI"
	DocTypeFURIPS      = "FURIPS"
	DocTypeCivilReg    = "REG"
	DocTypeIDCopy      = "ID"
	DocTypeOther       = "OTH"
)

// StatusHistoryEntry is one append-only workflow trace line. An empty
// ChangedBy means the transition was system-initiated.
type StatusHistoryEntry struct {
	ID             int64     `json:"id"`
	PreviousStatus Status    `json:"previous_status"`
	NewStatus      Status    `json:"new_status"`
	ChangedBy      string    `json:"changed_by_name"`
	ChangeDate     time.Time `json:"change_date"`
	Observation    string    `json:"observation"`
}
