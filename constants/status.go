package constants

// InvoiceStatus is the canonical lifecycle status for rows in invoices.
type InvoiceStatus string

// Stable values (store these exact strings in DB).
const (
	StatusUploaded   InvoiceStatus = "uploaded"   // accepted, not yet picked up
	StatusProcessing InvoiceStatus = "processing" // pipeline in progress
	StatusParsed     InvoiceStatus = "parsed"     // terminal success
	StatusError      InvoiceStatus = "error"      // terminal failure, reason recorded
)

// FailureReason is the terminal error taxonomy for a parsing attempt.
// Reasons are persisted verbatim in invoices.error_reason.
type FailureReason string

const (
	ReasonUnsupportedFormat    FailureReason = "UnsupportedFormat"
	ReasonExtractionFailure    FailureReason = "ExtractionFailure"
	ReasonLLMUnavailable       FailureReason = "LLMUnavailable"
	ReasonMalformedResponse    FailureReason = "MalformedResponse"
	ReasonMissingRequiredField FailureReason = "MissingRequiredField"
)

// AlertType classifies validation findings.
type AlertType string

const (
	AlertDuplicateInvoice AlertType = "duplicate_invoice"
	AlertPriceDeviation   AlertType = "price_deviation"
)

// AlertSeverity ranks validation findings.
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// AlertStatus tracks whether an alert has been acted on. The pipeline only
// ever creates alerts as active; resolution happens outside the core.
type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)
