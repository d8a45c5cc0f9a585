package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldTransactionID = "transaction_id"
	FieldCategoryID    = "category_id"
	FieldMonth         = "month"
	FieldAmountCents   = "amount_cents"
	FieldRuleText      = "rule_text"
	FieldAdded         = "added"
	FieldDuplicates    = "duplicates"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStore   = "store"
	ComponentImport  = "import"
	ComponentPersist = "persist"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
	ComponentCache   = "cache"
	ComponentTrace   = "trace"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpImport     = "import"
	OpCategorize = "categorize"
	OpLock       = "lock"
	OpUnlock     = "unlock"
	OpSave       = "save"
	OpLoad       = "load"
	OpBackup     = "backup"
	OpExport     = "export"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)
