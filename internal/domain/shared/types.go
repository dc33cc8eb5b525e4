package shared

// ReconcileStatus defines the reconciliation states of a fuel-card transaction
type ReconcileStatus string

const (
	ReconcileStatusReconciled ReconcileStatus = "reconciled"
	ReconcileStatusPending    ReconcileStatus = "pending"
	ReconcileStatusUnmatched  ReconcileStatus = "unmatched"
)

// EfficiencyStatus classifies observed consumption against the applicable norm
type EfficiencyStatus string

const (
	EfficiencyStatusPoor      EfficiencyStatus = "poor"
	EfficiencyStatusNormal    EfficiencyStatus = "normal"
	EfficiencyStatusExcellent EfficiencyStatus = "excellent"
)

// AlertCategory enumerates the stable alert identifiers consumed by reporting
type AlertCategory string

const (
	AlertCategoryProbeDiscrepancy    AlertCategory = "probe_discrepancy"
	AlertCategoryEfficiency          AlertCategory = "efficiency"
	AlertCategoryMissingVerification AlertCategory = "missing_verification"
	AlertCategoryUnlinked            AlertCategory = "unlinked"
	AlertCategoryResolved            AlertCategory = "resolved"
)

// AlertSeverity ranks an alert for reporting purposes
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AuditAction defines the mutation kinds recorded in the audit trail
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// Supported billing currencies for fuel transactions. Imports default to ZAR.
const (
	CurrencyZAR = "ZAR"
	CurrencyUSD = "USD"
)

// OutboxStatus defines audit outbox publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
