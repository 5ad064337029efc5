package incapacity

// Status mirrors the server's workflow vocabulary. The client never decides
// transition legality; it only renders statuses and offers the two actions
// the workflow view exposes.
type Status string

const (
	StatusReported    Status = "REPORTED"
	StatusInProcess   Status = "IN_PROCESS"
	StatusTranscribed Status = "TRANSCRIBED"
	StatusFiled       Status = "FILED"
	StatusAuthorized  Status = "AUTHORIZED"
	StatusRejected    Status = "REJECTED"
	StatusPaid        Status = "PAID"
	StatusClosed      Status = "CLOSED"
)

// Statuses lists the known statuses in pipeline order, for filter dropdowns.
func Statuses() []Status {
	return []Status{
		StatusReported,
		StatusInProcess,
		StatusTranscribed,
		StatusFiled,
		StatusAuthorized,
		StatusRejected,
		StatusPaid,
		StatusClosed,
	}
}

func (s Status) Known() bool {
	for _, candidate := range Statuses() {
		if s == candidate {
			return true
		}
	}
	return false
}

// Label returns the display name, with an explicit fallback for values the
// server may introduce that this build does not know yet.
func (s Status) Label() string {
	switch s {
	case StatusReported:
		return "Reported"
	case StatusInProcess:
		return "In Process"
	case StatusTranscribed:
		return "Transcribed"
	case StatusFiled:
		return "Filed"
	case StatusAuthorized:
		return "Authorized"
	case StatusRejected:
		return "Rejected"
	case StatusPaid:
		return "Paid"
	case StatusClosed:
		return "Closed"
	default:
		return "Unknown Status"
	}
}

// Color returns the badge color for the status chip in the views.
func (s Status) Color() string {
	switch s {
	case StatusReported:
		return "#ed6c02"
	case StatusInProcess, StatusTranscribed, StatusFiled:
		return "#0288d1"
	case StatusAuthorized:
		return "#7b1fa2"
	case StatusPaid:
		return "#2e7d32"
	case StatusRejected:
		return "#d32f2f"
	case StatusClosed:
		return "#616161"
	default:
		return "#9e9e9e"
	}
}

// AllowsPayment reports whether the record has entered the administrative
// pipeline far enough for the payment form to be offered. UX gate only; the
// server re-validates every payment.
func (s Status) AllowsPayment() bool {
	return s != StatusReported && s != StatusRejected
}

// The two transitions the workflow view submits. The server is the sole
// arbiter of whether they are legal from the record's current status.
const (
	TransitionApprove = StatusTranscribed
	TransitionReject  = StatusRejected
)
