package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"awsdev/internal/policy"
	"awsdev/internal/session"
)

type ErrorKind string

const (
	KindNotFound      ErrorKind = "NotFound"
	KindInvalidInput  ErrorKind = "InvalidInput"
	KindAuthFailure   ErrorKind = "AuthFailure"
	KindProviderError ErrorKind = "ProviderError"
	KindInternal      ErrorKind = "Internal"
)

// ToolError carries an explicit classification out of a handler.
type ToolError struct {
	Kind      ErrorKind
	Code      string
	Retryable bool
	Err       error
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewInvalidInputError reports arguments that pass the schema but are still
// unusable, e.g. a malformed ARN.
func NewInvalidInputError(format string, args ...any) error {
	return &ToolError{Kind: KindInvalidInput, Err: fmt.Errorf(format, args...)}
}

// NewProviderError reports a failed AWS operation under the provider's error
// code, e.g. a knowledge base that does not exist.
func NewProviderError(code, format string, args ...any) error {
	return &ToolError{Kind: KindProviderError, Code: code, Err: fmt.Errorf(format, args...)}
}

// NewInternalError reports a server-side problem such as missing
// configuration.
func NewInternalError(format string, args ...any) error {
	return &ToolError{Kind: KindInternal, Err: fmt.Errorf(format, args...)}
}

func knownKind(kind ErrorKind) bool {
	switch kind {
	case KindNotFound, KindInvalidInput, KindAuthFailure, KindProviderError, KindInternal:
		return true
	}
	return false
}

// Classify maps any error reaching the dispatcher onto the closed failure
// taxonomy.
func Classify(err error) Failure {
	if err == nil {
		return Failure{Kind: KindInternal, Message: "unknown error"}
	}
	msg := err.Error()

	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		if !knownKind(toolErr.Kind) {
			return Failure{Kind: KindInternal, Message: msg}
		}
		return Failure{Kind: toolErr.Kind, Message: msg, Code: toolErr.Code, Retryable: toolErr.Retryable}
	}
	if errors.Is(err, ErrUnknownTool) {
		return Failure{Kind: KindNotFound, Message: msg}
	}
	if errors.Is(err, session.ErrSessionCreation) || errors.Is(err, policy.ErrProfileNotAllowed) {
		return Failure{Kind: KindAuthFailure, Message: msg}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Failure{Kind: KindProviderError, Message: msg, Code: "Timeout", Retryable: true}
	}
	if errors.Is(err, context.Canceled) {
		return Failure{Kind: KindProviderError, Message: msg, Code: "Canceled", Retryable: true}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch code {
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
			return Failure{Kind: KindProviderError, Message: msg, Code: code}
		case "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequestsException",
			"ProvisionedThroughputExceededException", "ServiceUnavailable", "ServiceUnavailableException":
			return Failure{Kind: KindProviderError, Message: msg, Code: code, Retryable: true}
		case "ResourceNotFoundException", "NotFoundException", "NoSuchEntity", "RepositoryNotFoundException":
			return Failure{Kind: KindProviderError, Message: msg, Code: code}
		case "ValidationException", "ValidationError", "InvalidParameterException", "InvalidParameterValue":
			return Failure{Kind: KindProviderError, Message: msg, Code: code}
		case "ConflictException":
			return Failure{Kind: KindProviderError, Message: msg, Code: code, Retryable: true}
		default:
			return Failure{Kind: KindProviderError, Message: msg, Code: code, Retryable: apiErr.ErrorFault() == smithy.FaultServer}
		}
	}

	// An operation error without an API error is a transport failure.
	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		return Failure{Kind: KindProviderError, Message: msg, Retryable: true}
	}

	return Failure{Kind: KindInternal, Message: msg}
}
