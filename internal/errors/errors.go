package errors

import (
	"errors"
	"fmt"
	"time"

	"survivor_pool/internal/deadline"
)

// Stable codes carried to clients alongside the message
const (
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeInvalidArgument    = "invalid_argument"
	CodeUnauthenticated    = "unauthenticated"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeLocked             = "locked"
	CodeInvalidToken       = "invalid_token"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnverified         = "unverified"
	CodeInternal           = "internal"
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// Code returns the stable client code
func (e *NotFoundError) Code() string { return CodeNotFound }

// Is enables errors.Is() comparison for NotFoundError
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return t.Entity == "" || e.Entity == t.Entity
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Entity  string
	Context string // Additional context like "for this week"
}

func (e *AlreadyExistsError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s already exists %s", e.Entity, e.Context)
	}
	return fmt.Sprintf("%s already exists", e.Entity)
}

// Code returns the stable client code
func (e *AlreadyExistsError) Code() string { return CodeConflict }

// Is enables errors.Is() comparison for AlreadyExistsError
func (e *AlreadyExistsError) Is(target error) bool {
	t, ok := target.(*AlreadyExistsError)
	if !ok {
		return false
	}
	return t.Entity == "" || e.Entity == t.Entity
}

// ValidationError represents a bad argument such as an unknown enum value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Code returns the stable client code
func (e *ValidationError) Code() string { return CodeInvalidArgument }

// Is matches validation errors on the same field
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || e.Field == t.Field
}

// AuthenticationError is returned when no identity can be resolved for the caller
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// Code returns the stable client code
func (e *AuthenticationError) Code() string { return CodeUnauthenticated }

// AuthorizationError is returned when the caller's role does not allow the operation
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// Code returns the stable client code
func (e *AuthorizationError) Code() string { return CodeUnauthorized }

// ForbiddenError is returned when the target is not in a state that allows the operation
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// Code returns the stable client code
func (e *ForbiddenError) Code() string { return CodeForbidden }

// LockedError is returned once a week's pick deadline has passed
type LockedError struct {
	Week     int
	Deadline time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("picks for week %d locked at %s", e.Week, e.Deadline.UTC().Format(time.RFC3339))
}

// Code returns the stable client code
func (e *LockedError) Code() string { return CodeLocked }

// Is matches any LockedError
func (e *LockedError) Is(target error) bool {
	_, ok := target.(*LockedError)
	return ok
}

// TokenError is returned for a confirmation token with a bad signature, wrong purpose or past expiry
type TokenError struct {
	Reason string
}

func (e *TokenError) Error() string {
	if e.Reason != "" {
		return "invalid or expired token: " + e.Reason
	}
	return "invalid or expired token"
}

// Code returns the stable client code
func (e *TokenError) Code() string { return CodeInvalidToken }

// Is matches any TokenError
func (e *TokenError) Is(target error) bool {
	_, ok := target.(*TokenError)
	return ok
}

// CredentialsError is returned for an unknown e-mail or a password mismatch
type CredentialsError struct{}

func (e *CredentialsError) Error() string { return "invalid credentials" }

// Code returns the stable client code
func (e *CredentialsError) Code() string { return CodeInvalidCredentials }

// UnverifiedError is returned when a user with valid credentials has not confirmed the e-mail
type UnverifiedError struct{}

func (e *UnverifiedError) Error() string { return "email address not verified" }

// Code returns the stable client code
func (e *UnverifiedError) Code() string { return CodeUnverified }

// Entity Not Found Errors
var (
	ErrUserNotFound  = &NotFoundError{Entity: "user"}
	ErrEntryNotFound = &NotFoundError{Entity: "entry"}
	ErrPickNotFound  = &NotFoundError{Entity: "pick"}
	ErrTeamNotFound  = &NotFoundError{Entity: "team"}
)

// Already Exists Errors
var (
	ErrUserExists = &AlreadyExistsError{Entity: "user", Context: "with this email"}
	ErrPickExists = &AlreadyExistsError{Entity: "pick", Context: "for this week"}
	ErrTeamExists = &AlreadyExistsError{Entity: "team", Context: "with this name"}
)

// Validation Errors
var (
	ErrInvalidRole   = &ValidationError{Field: "role", Message: "must be one of player, manager, admin"}
	ErrInvalidResult = &ValidationError{Field: "result", Message: "must be win or loss"}
	ErrInvalidWeek   = &ValidationError{Field: "week", Message: fmt.Sprintf("must be between 1 and %d", deadline.MaxWeek)}
	ErrUnknownTeam   = &ValidationError{Field: "team", Message: "team is not registered"}
	ErrInvalidEmail  = &ValidationError{Field: "email", Message: "invalid email address"}
	ErrWeakPassword  = &ValidationError{Field: "password", Message: "must be 8-72 characters"}
)

// Access Errors
var (
	ErrMissingSession    = &AuthenticationError{Message: "missing or invalid session"}
	ErrInsufficientRole  = &AuthorizationError{Message: "insufficient role for this operation"}
	ErrNotEntryOwner     = &AuthorizationError{Message: "entry belongs to another user"}
	ErrEntryNotVerified  = &ForbiddenError{Message: "entry is not verified by an administrator"}
	ErrPickWeekLocked    = &ForbiddenError{Message: "pick belongs to a locked week and cannot be moved"}
	ErrInvalidToken      = &TokenError{}
	ErrInvalidCredential = &CredentialsError{}
	ErrUserUnverified    = &UnverifiedError{}
)

// Helper Functions

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsAlreadyExists checks if an error is an AlreadyExistsError
func IsAlreadyExists(err error) bool {
	var existsErr *AlreadyExistsError
	return errors.As(err, &existsErr)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsAuthentication checks if an error is an AuthenticationError
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsAuthorization checks if an error is an AuthorizationError
func IsAuthorization(err error) bool {
	var authzErr *AuthorizationError
	return errors.As(err, &authzErr)
}

// IsForbidden checks if an error is a ForbiddenError
func IsForbidden(err error) bool {
	var forbiddenErr *ForbiddenError
	return errors.As(err, &forbiddenErr)
}

// IsLocked checks if an error is a LockedError
func IsLocked(err error) bool {
	var lockedErr *LockedError
	return errors.As(err, &lockedErr)
}

// Code returns the stable code for err, or CodeInternal for anything outside the taxonomy
func Code(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return CodeInternal
}

// NewNotFoundError creates a new NotFoundError for a custom entity
func NewNotFoundError(entity string) error {
	return &NotFoundError{Entity: entity}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewLockedError creates a LockedError for the given week and deadline
func NewLockedError(week int, deadline time.Time) error {
	return &LockedError{Week: week, Deadline: deadline}
}

// NewTokenError wraps a token verification failure reason
func NewTokenError(reason string) error {
	return &TokenError{Reason: reason}
}
