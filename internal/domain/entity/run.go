package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayrollRun is one payroll cycle's processing unit, tracked from draft
// through lock and unfreeze. Status transitions happen exclusively through
// the workflow engine.
type PayrollRun struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	Exceptions []PayrollException `json:"exceptions"`
	Notes      []ReviewNote       `json:"notes"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// PayLine is a single computed pay result for one employee. Gross/net
// calculation happens upstream; the control plane only inspects the result.
type PayLine struct {
	ID          int64           `json:"id,omitempty"`
	RunID       string          `json:"run_id,omitempty"`
	EmployeeID  string          `json:"employee_id"`
	BankAccount string          `json:"bank_account,omitempty"`
	NetPay      decimal.Decimal `json:"net_pay"`
}

// PayrollException is a detected defect in a computed pay line that blocks
// confident payment. Exceptions are never removed, only marked resolved.
type PayrollException struct {
	ID         int64      `json:"id,omitempty"`
	EmployeeID string     `json:"employee_id"`
	Code       string     `json:"code"`
	Message    string     `json:"message"`
	Field      string     `json:"field,omitempty"`
	Resolved   bool       `json:"resolved"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// ReviewNote is a timestamped human comment attached to a decision point.
// Immutable once created.
type ReviewNote struct {
	ID        int64     `json:"id,omitempty"`
	AuthorID  string    `json:"author_id"`
	Role      string    `json:"role"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
