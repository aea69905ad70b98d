package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrLockNotAcquired    = errors.New("lock is held by another worker")

	// Validation
	ErrMissingFields      = errors.New("required fields are missing")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidPhone       = errors.New("invalid saudi phone number")
	ErrMissingCredentials = errors.New("email and password are required")

	// Accounts and tokens
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoToken            = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid token")

	// Payments
	ErrMissingPaymentInfo       = errors.New("payment information required")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrUnsupportedProvider      = errors.New("unsupported webhook provider")
	ErrInvalidPlan              = errors.New("invalid plan")
	ErrSessionNotFound          = errors.New("payment session not found")
	ErrInvalidSignature         = errors.New("invalid webhook signature")
	ErrInvalidTransition        = errors.New("payment session already resolved")
	ErrMalformedWebhook         = errors.New("malformed webhook payload")
	ErrProviderUnavailable      = errors.New("payment provider call failed")
	ErrLedgerDisabled           = errors.New("payment ledger not configured")

	// Usage and analytics
	ErrInvalidFeature     = errors.New("unknown usage feature")
	ErrUsageLimitReached  = errors.New("usage limit reached for current plan")
	ErrMissingEvent       = errors.New("event name is required")
	ErrAnalyticsQueueFull = errors.New("analytics queue full")
)
