package models

const (
	ActivityTrip   = "trip"
	ActivityCourse = "course"
	ActivityAll    = "all"
)

const (
	InvoiceStatusPaid     = "paid"
	InvoiceStatusPending  = "pending"
	InvoiceStatusOverdue  = "overdue"
	InvoiceStatusDraft    = "draft"
	InvoiceStatusCanceled = "canceled"
	InvoiceStatusFailed   = "failed"
)

const (
	InvoiceTypeOnline = "online"
	InvoiceTypeCash   = "cash"
)

const (
	SenderCustomer = "customer"
	SenderAdmin    = "admin"
	SenderSystem   = "system"
)

const (
	ChatStatusActive = "active"
	ChatStatusClosed = "closed"
	ChatStatusEnded  = "ended"
)

const (
	UserTypeUser  = "user"
	UserTypeAdmin = "admin"
)

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const (
	// DefaultCurrency is used when the backend omits a currency.
	DefaultCurrency = "EGP"

	// DefaultVerifyTTL keeps remote verification stamps in Redis, seconds.
	DefaultVerifyTTL = 24 * 60 * 60

	// DefaultCacheTTL is the GET cache lifetime for catalog lists, seconds.
	DefaultCacheTTL = 5 * 60

	// WorkerQueueSize is the in-memory ledger queue capacity.
	WorkerQueueSize = 128
)
