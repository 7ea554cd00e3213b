package port

import "context"

// NotificationGateway delivers one-way messages to role groups on workflow
// handoffs. Delivery is fire-and-forget: a failed notification must never
// fail or roll back the transition that caused it.
type NotificationGateway interface {
	Notify(ctx context.Context, roleGroup string, message string, runID string) error
}

// PayslipResult reports the outcome of payslip generation for a run
type PayslipResult struct {
	OK             bool   `json:"ok"`
	GeneratedCount int    `json:"generated_count"`
	Message        string `json:"message"`
}

// PayslipIssuer generates payslip documents for a locked run. Implementations
// must re-validate status == LOCKED and refuse otherwise, since the issuer
// may be called defensively from multiple paths.
type PayslipIssuer interface {
	GenerateForRun(ctx context.Context, runID string, status string) (*PayslipResult, error)
}
