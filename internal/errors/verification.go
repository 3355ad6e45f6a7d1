package errors

var (
	ErrMissingUserID = &DomainError{
		Code:    "MISSING_USER_ID",
		Message: "user id is required to start verification",
	}
	ErrSessionNotFound = &DomainError{
		Code:    "SESSION_NOT_FOUND",
		Message: "no verification session in progress",
	}
	ErrRecordNotFound = &DomainError{
		Code:    "RECORD_NOT_FOUND",
		Message: "verification record not found",
	}
	ErrApplicantMismatch = &DomainError{
		Code:    "APPLICANT_MISMATCH",
		Message: "applicant does not belong to the current session",
	}
)
