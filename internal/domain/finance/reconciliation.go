// Package finance holds the client-side view of the reconciliation between
// the expected benefit amount and what the insuring entity has actually
// paid. Both sides of the comparison are computed by the server; the console
// never caches or recomputes them.
package finance

// ReconciliationSummary is the server-computed expected/paid/balance triple
// for one incapacity record. Refetched on every view; never mutated locally.
type ReconciliationSummary struct {
	ExpectedAmount float64 `json:"expected_amount,string"`
	PaidAmount     float64 `json:"paid_amount,string"`
	Balance        float64 `json:"balance,string"`
	Status         string  `json:"status"`
}

// Settled reports whether the insuring entity owes nothing further. A
// negative balance (overpayment) also counts as settled.
func (r ReconciliationSummary) Settled() bool {
	return r.Balance <= 0
}

// Payment registers money received from the insuring entity. Write-only
// from the client's perspective: payments are created, never listed or
// edited. Only their aggregate shows up in the summary.
type Payment struct {
	Incapacity      int64   `json:"incapacity"`
	AmountPaid      float64 `json:"amount_paid,string"`
	PaymentDate     string  `json:"payment_date"`
	ReferenceNumber string  `json:"reference_number"`
}
