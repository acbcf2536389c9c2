package errors

const (
	// Configuration errors
	ErrInvalidConfig           ErrorCode = "invalid_configuration"
	ErrMissingConfig           ErrorCode = "missing_configuration"
	ErrReadConfig              ErrorCode = "read_config_failed"
	ErrBindFlags               ErrorCode = "bind_flags_failed"
	ErrInvalidInterval         ErrorCode = "invalid_interval"
	ErrInvalidLogLevel         ErrorCode = "invalid_log_level"
	ErrInvalidConnectionString ErrorCode = "invalid_connection_string"

	// Transport errors
	ErrConnect    ErrorCode = "connect_failed"
	ErrSubmit     ErrorCode = "submit_failed"
	ErrNotOpen    ErrorCode = "connection_not_open"
	ErrLoadCACert ErrorCode = "load_ca_cert_failed"
	ErrSignToken  ErrorCode = "sign_token_failed"

	// Telemetry errors
	ErrSerialize ErrorCode = "serialize_failed"

	// Journal errors
	ErrJournalInit  ErrorCode = "journal_init_failed"
	ErrJournalWrite ErrorCode = "journal_write_failed"
	ErrJournalClose ErrorCode = "journal_close_failed"

	// Lifecycle errors
	ErrInvalidOperation ErrorCode = "invalid_operation"
)

var errorMessages = map[ErrorCode]string{
	ErrInvalidConfig:           "Invalid configuration",
	ErrMissingConfig:           "Missing configuration",
	ErrReadConfig:              "Failed to read configuration",
	ErrBindFlags:               "Failed to bind flags",
	ErrInvalidInterval:         "Invalid interval value",
	ErrInvalidLogLevel:         "Invalid log level",
	ErrInvalidConnectionString: "Invalid connection string",
	ErrConnect:                 "Could not connect",
	ErrSubmit:                  "Failed to send message",
	ErrNotOpen:                 "Connection is not open",
	ErrLoadCACert:              "Failed to load CA certificate",
	ErrSignToken:               "Failed to sign SAS token",
	ErrSerialize:               "Failed to serialize telemetry",
	ErrJournalInit:             "Failed to initialize journal",
	ErrJournalWrite:            "Failed to write journal entry",
	ErrJournalClose:            "Failed to close journal",
	ErrInvalidOperation:        "Invalid operation",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
