package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrLoginActive        ErrCode = "LOGIN_ALREADY_ACTIVE"
	ErrLoginInvalidated   ErrCode = "LOGIN_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden    ErrCode = "FORBIDDEN"
	ErrAccessDenied ErrCode = "ACCESS_DENIED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrInvalidSubjects     ErrCode = "INVALID_SUBJECTS"
	ErrSessionActive       ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionNotSetup     ErrCode = "SESSION_NOT_IN_SETUP"
	ErrSessionNotActive    ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionNotCompleted ErrCode = "SESSION_NOT_COMPLETED"
	ErrUnknownQuestion     ErrCode = "QUESTION_NOT_IN_SESSION"
	ErrAssemblyFailed      ErrCode = "ASSEMBLY_FAILED"

	// ─── Payments / unlock ─────────────────────────────────────────────
	ErrInvalidUnlockCode  ErrCode = "INVALID_UNLOCK_CODE"
	ErrPaymentInitFailed  ErrCode = "PAYMENT_INIT_FAILED"
	ErrPaymentNotFound    ErrCode = "PAYMENT_NOT_FOUND"
	ErrPaymentUnconfirmed ErrCode = "PAYMENT_NOT_CONFIRMED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrLoginActive:
		return "You are already logged in on another device."
	case ErrLoginInvalidated:
		return "Your login has expired. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAccessDenied:
		return "Premium access required. Pay or enter a valid unlock code to start an exam."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	case ErrInvalidSubjects:
		return "Select exactly 4 distinct subjects from the supported list."
	case ErrSessionActive:
		return "You already have an exam in progress. Finish it before starting another."
	case ErrSessionNotSetup:
		return "This exam has already been started."
	case ErrSessionNotActive:
		return "This exam is not active."
	case ErrSessionNotCompleted:
		return "This exam has not been completed yet."
	case ErrUnknownQuestion:
		return "The question does not belong to this exam."
	case ErrAssemblyFailed:
		return "Unable to start exam, try again."

	case ErrInvalidUnlockCode:
		return "The unlock code is not valid."
	case ErrPaymentInitFailed:
		return "Could not initialize the payment. Please try again."
	case ErrPaymentNotFound:
		return "No payment found for that reference."
	case ErrPaymentUnconfirmed:
		return "The payment has not been confirmed yet."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
