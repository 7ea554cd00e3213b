package service

import (
	"time"

	"github.com/garyjia/payroll-control/internal/domain/entity"
)

// AnalysisResult holds the exceptions detected over a set of pay lines and
// the suggested initial run status.
type AnalysisResult struct {
	Exceptions []entity.PayrollException
	Status     string
}

// Analyzer detects anomalies in computed pay lines. It is pure and stateless:
// no I/O, no side effects, deterministic given identical input and clock.
type Analyzer struct {
	now func() time.Time
}

// NewAnalyzer creates a new pay line analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{now: time.Now}
}

// DetectAnomalies evaluates every pay line against the anomaly rules and
// returns the accumulated exceptions plus a suggested status: any detected
// anomaly forces human review (UNDER_REVIEW) before the run may be published;
// a clean set of lines proceeds to DRAFT_GENERATED.
//
// A single line may emit multiple exceptions. New anomaly codes can be added
// here without changing the contract shape.
func (a *Analyzer) DetectAnomalies(lines []entity.PayLine) *AnalysisResult {
	var exceptions []entity.PayrollException

	for _, line := range lines {
		if line.BankAccount == "" {
			exceptions = append(exceptions, entity.PayrollException{
				EmployeeID: line.EmployeeID,
				Code:       entity.ExceptionMissingBank,
				Message:    "Missing bank account details",
				Field:      "bankAccount",
				CreatedAt:  a.now(),
			})
		}

		if line.NetPay.IsNegative() {
			exceptions = append(exceptions, entity.PayrollException{
				EmployeeID: line.EmployeeID,
				Code:       entity.ExceptionNegativeNetPay,
				Message:    "Net pay is negative",
				Field:      "netPay",
				CreatedAt:  a.now(),
			})
		}
	}

	status := entity.StatusDraftGenerated
	if len(exceptions) > 0 {
		status = entity.StatusUnderReview
	}

	return &AnalysisResult{
		Exceptions: exceptions,
		Status:     status,
	}
}
