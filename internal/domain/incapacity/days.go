package incapacity

import "time"

const dateLayout = "2006-01-02"

// DeriveDays computes the inclusive day span between two YYYY-MM-DD dates:
// a leave starting and ending on the same day counts as one day. The result
// is a default for the days field, not an enforced constraint; the field
// stays independently editable.
func DeriveDays(startDate, endDate string) (int, bool) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return 0, false
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return 0, false
	}
	if end.Before(start) {
		return 0, false
	}
	return int(end.Sub(start).Hours()/24) + 1, true
}
