package errors

// Predefined domain errors for the session graph. Constructors are functions
// because AppError carries a stack trace captured at the call site.

// Users

func ErrUserNotFound(userID string) *AppError {
	return NewNotFoundError("user").WithCode("USER_NOT_FOUND").
		WithDetails(map[string]interface{}{"user_id": userID})
}

func ErrEmailAlreadyRegistered(email string) *AppError {
	return NewConflictError("a user with this email already exists").
		WithCode("EMAIL_TAKEN").
		WithDetails(map[string]interface{}{"email": email})
}

// Sessions

func ErrSessionNotFound(sessionID string) *AppError {
	return NewNotFoundError("session").WithCode("SESSION_NOT_FOUND").
		WithDetails(map[string]interface{}{"session_id": sessionID})
}

func ErrSessionAlreadyAnalyzed(sessionID string) *AppError {
	return NewConflictError("session has already been analyzed").
		WithCode("SESSION_ALREADY_ANALYZED").
		WithDetails(map[string]interface{}{"session_id": sessionID})
}

func ErrSessionLockTimeout(userID string) *AppError {
	return NewTimeoutError("acquire session chain lock").
		WithCode("CHAIN_LOCK_TIMEOUT").
		WithDetails(map[string]interface{}{"user_id": userID})
}

// Elements

func ErrElementNotFound(elementID string) *AppError {
	return NewNotFoundError("element").WithCode("ELEMENT_NOT_FOUND").
		WithDetails(map[string]interface{}{"element_id": elementID})
}

func ErrUnknownElementKind(kind string) *AppError {
	return NewValidationError("unknown element kind").
		WithCode("UNKNOWN_ELEMENT_KIND").
		WithDetails(map[string]interface{}{"kind": kind})
}

func ErrEmptyElementName() *AppError {
	return NewValidationError("element name must not be empty").
		WithCode("EMPTY_ELEMENT_NAME")
}

// Topics

func ErrTopicNotFound(name string) *AppError {
	return NewNotFoundError("topic").WithCode("TOPIC_NOT_FOUND").
		WithDetails(map[string]interface{}{"topic": name})
}
