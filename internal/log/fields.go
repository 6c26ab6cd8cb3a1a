package log

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"

	FieldAccount    = "account"
	FieldEndpoint   = "endpoint"
	FieldRPCMethod  = "rpc_method"
	FieldAttempt    = "attempt"
	FieldStart      = "start"
	FieldLimit      = "limit"
	FieldItemCount  = "item_count"
	FieldSequence   = "sequence_index"
	FieldGeneration = "generation"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentRPC       = "rpc"
	ComponentActivity  = "activity"
	ComponentView      = "view"
	ComponentAMQP      = "amqp"
	ComponentWatcher   = "watcher"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

// Operation names.
const (
	OpFetchHistory  = "fetch_history"
	OpFetchAccounts = "fetch_accounts"
	OpFetchFollows  = "fetch_follows"
	OpFetchGlobals  = "fetch_globals"
	OpSummarize     = "summarize"
	OpPoll          = "poll"
	OpRefresh       = "refresh"
)

// Error type categories.
const (
	ErrorTypeNetwork    = "network_error"
	ErrorTypeProtocol   = "protocol_error"
	ErrorTypeTimeout    = "timeout_error"
	ErrorTypeSuperseded = "superseded"
	ErrorTypeInternal   = "internal_error"
)

// LogFields is a builder for structured log attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError sets the error message. A nil error is ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithAccount(account string) LogFields {
	f[FieldAccount] = account
	return f
}

// WithRPC adds the node endpoint, JSON-RPC method and attempt number of a call.
func (f LogFields) WithRPC(endpoint, method string, attempt int) LogFields {
	f[FieldEndpoint] = endpoint
	f[FieldRPCMethod] = method
	f[FieldAttempt] = attempt
	return f
}

// WithPage adds the history page coordinates.
func (f LogFields) WithPage(start int64, limit int) LogFields {
	f[FieldStart] = start
	f[FieldLimit] = limit
	return f
}

// WithSequence adds a history sequence index.
func (f LogFields) WithSequence(seq int64) LogFields {
	f[FieldSequence] = seq
	return f
}

func (f LogFields) WithGeneration(gen uint64) LogFields {
	f[FieldGeneration] = gen
	return f
}

func (f LogFields) WithItemCount(n int) LogFields {
	f[FieldItemCount] = n
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog's alternating key/value form.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
