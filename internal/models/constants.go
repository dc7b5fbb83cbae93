package models

const (
	StatusPending  = "pending"
	StatusQuoted   = "quoted"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

const (
	RoleClient = "client"
	RoleAgent  = "agent"
)

const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

const (
	// DefaultSessionTTL время жизни сессии по умолчанию
	DefaultSessionTTL = 30 * 24 * 60 * 60 // 30 дней в секундах

	// LoginRateLimitAttempts количество попыток входа в окне
	LoginRateLimitAttempts = 10

	// LoginRateLimitWindow окно ограничения попыток входа
	LoginRateLimitWindow = 60 // 1 минута в секундах

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128
)

// ValidRequestStatus reports whether s is a legal TravelRequest status.
func ValidRequestStatus(s string) bool {
	switch s {
	case StatusPending, StatusQuoted, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// ValidQuoteStatus reports whether s is a legal Quote status.
// Quotes never enter the quoted state; that one belongs to requests.
func ValidQuoteStatus(s string) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}
