package constants

// IngestStatus is the processing_status recorded on DOCUMENT_UPLOADED events.
type IngestStatus string

const (
	IngestStatusSuccess  IngestStatus = "success"
	IngestStatusDegraded IngestStatus = "degraded" // secondary write failed
)

// OracleOutcome tells how the metadata fields were produced.
type OracleOutcome string

const (
	OracleOK         OracleOutcome = "ok"
	OracleAIError    OracleOutcome = "ai_error"
	OracleParseError OracleOutcome = "parse_error"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
