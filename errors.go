package morphgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/morphlang/morphgen/parser"
	"github.com/morphlang/morphgen/resolve"
	"github.com/morphlang/morphgen/schema"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeStructuralViolation  ErrorCode = "structural_violation"
	CodeDuplicateDeclaration ErrorCode = "duplicate_declaration"
	CodeUnknownReference     ErrorCode = "unknown_reference"
	CodeUnresolvedGeneric    ErrorCode = "unresolved_generic"
	CodeUnterminatedBody     ErrorCode = "unterminated_body"
	CodeInvalidDeclaration   ErrorCode = "invalid_declaration"
	CodeInvalidArgument      ErrorCode = "invalid_argument"
	CodeNotFound             ErrorCode = "not_found"
	CodeFrozen               ErrorCode = "frozen"
	CodeCanceled             ErrorCode = "canceled"
	CodeDeadlineExceeded     ErrorCode = "deadline_exceeded"
	CodeInternal             ErrorCode = "internal"
)

// WarnAmbiguousField is the code attached to ambiguous-field warnings
// produced during resolution. Warnings never fail a run.
const WarnAmbiguousField = "ambiguous_field"

// Error is the standard error envelope. Every failure surfaced by the
// engine carries a code, the declaration it concerns (when known), and
// optional structured details.
type Error struct {
	Code        ErrorCode      `json:"code"`
	Message     string         `json:"message"`
	Declaration string         `json:"declaration,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Declaration != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Declaration, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new engine error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new engine error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDeclaration returns a copy of the error bound to a declaration name.
func (e *Error) WithDeclaration(name string) *Error {
	return &Error{
		Code:        e.Code,
		Message:     e.Message,
		Declaration: name,
		Details:     e.Details,
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:        e.Code,
		Message:     e.Message,
		Declaration: e.Declaration,
		Details:     details,
	}
}

// AsError maps any error produced by the parsing, registration, or
// resolution layers to the standard envelope. Unrecognized errors fall
// back to the internal code.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, "generation timeout")
	}
	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, "context canceled")
	}

	var structural *parser.StructuralError
	if errors.As(err, &structural) {
		return NewError(CodeStructuralViolation, structural.Msg).
			WithDetail("source", structural.SourceID).
			WithDetail("offset", structural.Offset)
	}

	var unterminated *parser.UnterminatedBodyError
	if errors.As(err, &unterminated) {
		return NewError(CodeUnterminatedBody, unterminated.Error()).
			WithDetail("source", unterminated.SourceID).
			WithDetail("offset", unterminated.Offset)
	}

	var parse *parser.ParseError
	if errors.As(err, &parse) {
		e := NewError(CodeInvalidDeclaration, parse.Msg).
			WithDetail("source", parse.SourceID).
			WithDetail("offset", parse.Offset)
		if parse.Hint != "" {
			e = e.WithDetail("hint", parse.Hint)
		}
		return e
	}

	var dup *schema.DuplicateDeclarationError
	if errors.As(err, &dup) {
		return NewError(CodeDuplicateDeclaration, dup.Error()).WithDeclaration(dup.Name)
	}

	var ref *schema.ReferenceError
	if errors.As(err, &ref) {
		return NewError(CodeUnknownReference, ref.Error()).
			WithDeclaration(ref.Declaration).
			WithDetail("target", ref.Target)
	}

	var unknown *resolve.UnknownTypeError
	if errors.As(err, &unknown) {
		return NewError(CodeUnknownReference, unknown.Error()).
			WithDeclaration(unknown.Declaration).
			WithDetail("target", unknown.Target)
	}

	var generic *resolve.UnresolvedGenericError
	if errors.As(err, &generic) {
		return NewError(CodeUnresolvedGeneric, generic.Error()).
			WithDeclaration(generic.Declaration).
			WithDetail("interface", generic.Interface)
	}

	var sealed *resolve.SealedScopeError
	if errors.As(err, &sealed) {
		return NewError(CodeStructuralViolation, sealed.Error()).
			WithDeclaration(sealed.Declaration).
			WithDetail("base", sealed.Base)
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any)
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Field()] = msg
			messages = append(messages, ve.Field()+": "+msg)
		}
		return &Error{
			Code:    CodeInvalidArgument,
			Message: strings.Join(messages, "; "),
			Details: details,
		}
	}

	if u, ok := err.(interface{ Unwrap() []error }); ok {
		errs := u.Unwrap()
		if len(errs) > 0 {
			firstMapped := AsError(errs[0])
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return &Error{
				Code:        firstMapped.Code,
				Message:     strings.Join(msgs, "; "),
				Declaration: firstMapped.Declaration,
				Details:     firstMapped.Details,
			}
		}
	}

	return NewError(CodeInternal, err.Error())
}

// HTTPStatus maps an ErrorCode to an HTTP status code for the dev server.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeStructuralViolation, CodeDuplicateDeclaration, CodeUnknownReference,
		CodeUnresolvedGeneric, CodeUnterminatedBody, CodeInvalidDeclaration,
		CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeFrozen:
		return http.StatusConflict
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx standard)
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
