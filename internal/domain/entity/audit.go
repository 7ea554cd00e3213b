package entity

import "time"

// AuditEntry is an immutable record of one state-changing action against a
// payroll run. The ledger of entries is the system of record for what
// happened and why; entries are never updated or deleted.
type AuditEntry struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
