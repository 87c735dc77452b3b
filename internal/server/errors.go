package server

// Error reasons returned in the body of failed requests.
const (
	ReasonInvalidArgument = "INVALID_ARGUMENT"
	ReasonNoArchive       = "NO_ARCHIVE"
	ReasonNotFound        = "REPORT_NOT_FOUND"
	ReasonMissingAPIKey   = "MISSING_API_KEY"
	ReasonInvalidAPIKey   = "INVALID_API_KEY"
	ReasonInternal        = "INTERNAL"
)

// APIKeyHeader carries the shared secret when serve runs with api_secret.
const APIKeyHeader = "X-API-Key"
