package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups auth failures by how the transport layer must answer them.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindCredential
	KindAccessGate
	KindConflict
	KindInvariant
	KindDependency
)

// AuthError is a request-scoped failure with a stable public code.
// Two AuthErrors match under errors.Is when their codes are equal, so
// per-request variants (e.g. RoleNotFound) still match their sentinel.
type AuthError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredentials     = &AuthError{Kind: KindCredential, Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
	ErrWrongPassword          = &AuthError{Kind: KindCredential, Code: "WRONG_PASSWORD", Message: "Invalid credentials"}
	ErrRoleNotFound           = &AuthError{Kind: KindNotFound, Code: "ROLE_NOT_FOUND", Message: "No such role account"}
	ErrAccountInactive        = &AuthError{Kind: KindAccessGate, Code: "ACCOUNT_INACTIVE", Message: "Account is inactive"}
	ErrAccountPendingApproval = &AuthError{Kind: KindAccessGate, Code: "ACCOUNT_PENDING_APPROVAL", Message: "Account is pending approval"}
	ErrInvalidToken           = &AuthError{Kind: KindCredential, Code: "INVALID_TOKEN", Message: "Invalid or expired token"}

	ErrValidation         = &AuthError{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "Invalid request"}
	ErrInvalidRole        = &AuthError{Kind: KindValidation, Code: "INVALID_ROLE", Message: "Only CLIENT accounts can be registered here"}
	ErrInvalidCategories  = &AuthError{Kind: KindValidation, Code: "INVALID_CATEGORIES", Message: "One or more preferred categories are invalid or inactive"}
	ErrEmailTaken         = &AuthError{Kind: KindConflict, Code: "EMAIL_TAKEN", Message: "Email is already registered"}
	ErrRegistrationBusy   = &AuthError{Kind: KindConflict, Code: "REGISTRATION_IN_PROGRESS", Message: "A registration for this email is already in progress"}
	ErrInvariantViolation = &AuthError{Kind: KindInvariant, Code: "INVARIANT_VIOLATION", Message: "Internal server error"}

	// ErrSigningSecretMissing is fatal at startup and never request-scoped.
	ErrSigningSecretMissing = &AuthError{Kind: KindDependency, Code: "SIGNING_SECRET_MISSING", Message: "token signing secret is not configured"}
)

// Store-level sentinels. These never reach a caller unmapped.
var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrAlreadyLinked    = errors.New("trader already linked to a client")
	ErrDuplicateEmail   = errors.New("email already exists in store")
)

// RoleNotFound narrows ErrRoleNotFound to the hinted role.
func RoleNotFound(r Role) *AuthError {
	return &AuthError{Kind: KindNotFound, Code: ErrRoleNotFound.Code, Message: fmt.Sprintf("No %s account found", r)}
}

// ValidationFailed returns a validation error carrying msg.
func ValidationFailed(msg string) *AuthError {
	return &AuthError{Kind: KindValidation, Code: ErrValidation.Code, Message: msg}
}

// AsAuthError extracts the AuthError from err's chain.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
