package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldUserID     = "user_id"
	FieldExternalID = "external_id"
	FieldChatID     = "chat_id"
	FieldState      = "state"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldCategoryID = "category_id"
	FieldRangeStart = "range_start"
	FieldRangeEnd   = "range_end"
	FieldExpenseID  = "expense_id"
	FieldFilename   = "filename"
	FieldRowCount   = "row_count"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentBot     = "bot"
	ComponentStorage = "storage"
	ComponentReport  = "report"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMirror  = "mirror"
	ComponentGateway = "gateway"
)
