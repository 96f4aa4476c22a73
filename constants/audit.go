package constants

// Severity is the audit severity tag.
type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

var severityLevels = map[Severity]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

// SeverityLevel returns the numeric level and whether s is a known severity.
func SeverityLevel(s Severity) (int, bool) {
	l, ok := severityLevels[s]
	return l, ok
}

// Audit sources.
const (
	SourceAPI         = "api"
	SourceSystem      = "system"
	SourceUser        = "user"
	SourceScheduler   = "scheduler"
	SourceAuditSystem = "audit_system"
)

const (
	AuditMaxQueryLimit     = 10000
	AuditDefaultQueryLimit = 100
	AuditDefaultRetention  = 365
	AuditDeleteBatchSize   = 500
)

// Event types emitted by the service itself.
const (
	EventDocumentUploaded         = "DOCUMENT_UPLOADED"
	EventDocumentUploadError      = "DOCUMENT_UPLOAD_ERROR"
	EventDocumentSearch           = "DOCUMENT_SEARCH"
	EventSearchError              = "SEARCH_ERROR"
	EventDocumentDownloaded       = "DOCUMENT_DOWNLOADED"
	EventDocumentDownloadedByPath = "DOCUMENT_DOWNLOADED_BY_PATH"
	EventDownloadError            = "DOWNLOAD_ERROR"
	EventDocumentsListed          = "DOCUMENTS_LISTED"
	EventStorageExplored          = "STORAGE_EXPLORED"
	EventUserRegistered           = "USER_REGISTERED"
	EventUserLoggedIn             = "USER_LOGGED_IN"
	EventLoginFailed              = "LOGIN_FAILED"
	EventUserPromotedToAdmin      = "USER_PROMOTED_TO_ADMIN"
	EventFetchUserInfo            = "FETCH_USER_INFO"
	EventAccessAdminRoute         = "ACCESS_ADMIN_ROUTE"
	EventUnauthorizedAdminAccess  = "UNAUTHORIZED_ADMIN_ACCESS"
	EventAuthError                = "AUTH_ERROR"
	EventAuditLogError            = "AUDIT_LOG_ERROR"
	EventAuditLogsQueried         = "AUDIT_LOGS_QUERIED"
	EventAuditStatsQueried        = "AUDIT_STATS_QUERIED"
	EventAuditLogsExported        = "AUDIT_LOGS_EXPORTED"
	EventAuditCleanupStarted      = "AUDIT_CLEANUP_STARTED"
	EventAuditCleanupCompleted    = "AUDIT_CLEANUP_COMPLETED"
	EventAuditCleanupFailed       = "AUDIT_CLEANUP_FAILED"
	EventAuditSystemInitialized   = "AUDIT_SYSTEM_INITIALIZED"
	EventSystemError              = "SYSTEM_ERROR"
	EventSystemStartup            = "SYSTEM_STARTUP"
	EventSystemShutdown           = "SYSTEM_SHUTDOWN"
)
