package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrMissingField   ErrCode = "MISSING_FIELD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrInvalidQuizKey     ErrCode = "INVALID_QUIZ_KEY"
	ErrAlreadyAttempted   ErrCode = "ALREADY_ATTEMPTED"
	ErrNoActiveAttempt    ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAnswerLocked       ErrCode = "ANSWER_LOCKED"
	ErrAttemptFinalized   ErrCode = "ATTEMPT_FINALIZED"
	ErrEmptyAnswerLock    ErrCode = "EMPTY_ANSWER_LOCK"
	ErrWrongQuizMode      ErrCode = "WRONG_QUIZ_MODE"
	ErrMalformedImport    ErrCode = "MALFORMED_IMPORT"
	ErrAlreadyGraded      ErrCode = "ALREADY_GRADED"
	ErrDeadlinePassed     ErrCode = "DEADLINE_PASSED"
	ErrGradingUnavailable ErrCode = "GRADING_UNAVAILABLE"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Roll number or password is incorrect."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrMissingField:
		return "Missing required fields."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrInvalidQuizKey:
		return "Incorrect quiz key."
	case ErrAlreadyAttempted:
		return "You have already attempted this quiz. Only offline answer upload is available."
	case ErrNoActiveAttempt:
		return "No attempt is in progress for this quiz."
	case ErrAnswerLocked:
		return "This answer is locked and can no longer be changed."
	case ErrAttemptFinalized:
		return "This attempt has been finalized. Answers can no longer be changed."
	case ErrEmptyAnswerLock:
		return "An empty answer cannot be locked."
	case ErrWrongQuizMode:
		return "This operation is not available for this quiz mode."
	case ErrMalformedImport:
		return "Invalid offline answers file."
	case ErrAlreadyGraded:
		return "This quiz has already been graded for your account."
	case ErrDeadlinePassed:
		return "The quiz deadline has passed."
	case ErrGradingUnavailable:
		return "Grading is temporarily unavailable. Your attempt was kept; please try submitting again."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
