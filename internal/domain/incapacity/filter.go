package incapacity

import (
	"strconv"
	"strings"
)

// StatusFilterAll is the sentinel "all statuses" value for the list filter.
const StatusFilterAll = "ALL"

// Filter applies the list view's two AND-combined predicates over the full
// in-memory set: a free-text match against employee name, the decimal string
// form of the id and the diagnosis code (case-insensitive substring for the
// text fields), and an exact status match unless the sentinel ALL is given.
// With an empty term and ALL it returns the records unchanged, in their
// original order. Records are filtered client-side on every request; fine
// for the small volumes this console handles.
func Filter(records []Incapacity, term, statusFilter string) []Incapacity {
	filtered := records

	if term != "" {
		needle := strings.ToLower(term)
		matched := make([]Incapacity, 0, len(filtered))
		for _, record := range filtered {
			if strings.Contains(strings.ToLower(record.EmployeeName), needle) ||
				strings.Contains(strconv.FormatInt(record.ID, 10), term) ||
				strings.Contains(strings.ToLower(record.DiagnosisCode), needle) {
				matched = append(matched, record)
			}
		}
		filtered = matched
	}

	if statusFilter != "" && statusFilter != StatusFilterAll {
		matched := make([]Incapacity, 0, len(filtered))
		for _, record := range filtered {
			if record.Status == Status(statusFilter) {
				matched = append(matched, record)
			}
		}
		filtered = matched
	}

	return filtered
}

// Tally holds the list view's header counters, computed over the unfiltered
// set.
type Tally struct {
	Total       int
	Reported    int
	Transcribed int
	Paid        int
}

// CountByStatus tallies the counters shown above the list. Transcribed and
// filed records count together, matching how the pipeline is presented.
func CountByStatus(records []Incapacity) Tally {
	tally := Tally{Total: len(records)}
	for _, record := range records {
		switch record.Status {
		case StatusReported:
			tally.Reported++
		case StatusTranscribed, StatusFiled:
			tally.Transcribed++
		case StatusPaid:
			tally.Paid++
		}
	}
	return tally
}
