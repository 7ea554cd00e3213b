package entity

// Status constants for PayrollRun
const (
	StatusPreRun                 = "PRE_RUN"
	StatusDraftGenerated         = "DRAFT_GENERATED"
	StatusUnderReview            = "UNDER_REVIEW"
	StatusWaitingFinanceApproval = "WAITING_FINANCE_APPROVAL"
	StatusLocked                 = "LOCKED"
	StatusUnfrozen               = "UNFROZEN"
)

// Exception code constants for PayrollException
const (
	ExceptionMissingBank    = "MISSING_BANK"
	ExceptionNegativeNetPay = "NEGATIVE_NET_PAY"
)

// Role group constants for review notes and notifications
const (
	RoleSpecialist = "SPECIALIST"
	RoleManager    = "MANAGER"
	RoleFinance    = "FINANCE"
	RoleSystem     = "SYSTEM"
)

// Approval result constants for manager/finance decisions
const (
	ResultApproved = "APPROVED"
	ResultRejected = "REJECTED"
)

// Audit action constants. This vocabulary is a closed, versioned contract;
// compliance exports and dashboards depend on the exact string values.
const (
	AuditCreateRun         = "CREATE_RUN"
	AuditPublishForReview  = "PUBLISH_FOR_REVIEW"
	AuditManagerApproved   = "MANAGER_APPROVED"
	AuditManagerRejected   = "MANAGER_REJECTED"
	AuditFinanceApproved   = "FINANCE_APPROVED"
	AuditFinanceRejected   = "FINANCE_REJECTED"
	AuditLock              = "LOCK"
	AuditUnfreeze          = "UNFREEZE"
	AuditPayslipsGenerated = "PAYSLIPS_GENERATED"
)
