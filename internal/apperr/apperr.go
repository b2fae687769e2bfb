// Package apperr defines the failure taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindWrongRole       Kind = "wrong_role"
	KindNotOwner        Kind = "not_owner"
	KindInvalidState    Kind = "invalid_state"
	KindDuplicate       Kind = "duplicate_resource"
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation"
	KindInternal        Kind = "internal"
)

// Reason codes returned to clients next to the kind.
const (
	ReasonUnauthenticated   = "unauthenticated"
	ReasonWrongRole         = "wrong_role"
	ReasonNotOwner          = "not_owner"
	ReasonNotCompleted      = "not_completed"
	ReasonAlreadyReviewed   = "already_reviewed"
	ReasonAlreadyApplied    = "already_applied"
	ReasonProfileExists     = "profile_exists"
	ReasonEmailTaken        = "email_taken"
	ReasonProjectNotOpen    = "project_not_open"
	ReasonApplicationClosed = "application_not_pending"
	ReasonInvalidTransition = "invalid_transition"
	ReasonNotParticipant    = "not_participant"
	ReasonAlreadyVerified   = "already_verified"
	ReasonBadCredentials    = "invalid_credentials"
	ReasonAccountInactive   = "account_inactive"
	ReasonNotFound          = "not_found"
	ReasonDuplicate         = "duplicate_resource"
	ReasonValidation        = "validation_error"
	ReasonInternal          = "internal_error"
)

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Fields  FieldErrors
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindUnauthenticated:
		return fiber.StatusUnauthorized
	case KindWrongRole, KindNotOwner:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInvalidState, KindDuplicate:
		return fiber.StatusConflict
	case KindValidation:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func newErr(kind Kind, reason, msg string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: msg}
}

func Unauthenticated() *Error {
	return newErr(KindUnauthenticated, ReasonUnauthenticated, "Authentication required")
}

// BadCredentials is an unauthenticated failure with its own reason code.
func BadCredentials(reason, msg string) *Error {
	return newErr(KindUnauthenticated, reason, msg)
}

func WrongRole(msg string) *Error {
	return newErr(KindWrongRole, ReasonWrongRole, msg)
}

func NotOwner(msg string) *Error {
	return newErr(KindNotOwner, ReasonNotOwner, msg)
}

// NotParticipant is a NotOwner failure for conversations.
func NotParticipant() *Error {
	return newErr(KindNotOwner, ReasonNotParticipant, "You are not part of this conversation")
}

func InvalidState(reason, msg string) *Error {
	return newErr(KindInvalidState, reason, msg)
}

func Duplicate(reason, msg string) *Error {
	return newErr(KindDuplicate, reason, msg)
}

func NotFound(msg string) *Error {
	return newErr(KindNotFound, ReasonNotFound, msg)
}

func Validation(fields FieldErrors) *Error {
	e := newErr(KindValidation, ReasonValidation, "Validation error")
	e.Fields = fields
	return e
}

func Internal(err error) *Error {
	e := newErr(KindInternal, ReasonInternal, "Internal server error")
	e.Err = err
	return e
}

// KindOf returns KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonInternal
}

// FromStore converts a store error into the taxonomy. A missing row
// becomes NotFound(notFound). Unique constraint violations become dup, so a
// lost check-then-insert race looks the same as the fast-path rejection;
// with a nil dup they get the generic duplicate_resource reason.
func FromStore(err error, notFound string, dup *Error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(notFound)
	}
	if IsUniqueViolation(err) {
		if dup == nil {
			dup = Duplicate(ReasonDuplicate, "Resource already exists")
		}
		d := *dup
		d.Err = err
		return &d
	}
	return Internal(err)
}

func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key value") || strings.Contains(s, "unique constraint")
}
