package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer. Routing-terminal outcomes
// (no agents, all failed, insufficient context) are statuses on result
// structs, not errors; only genuine faults live here.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrDuplicate        = fmt.Errorf("duplicate")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
	ErrCyclicDependency = fmt.Errorf("cyclic dependency in agent graph")
	ErrProviderError    = fmt.Errorf("provider error")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Graph.TopologicalOrder")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	CodeProviderError    ErrorCode = "PROVIDER_ERROR"
)

var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:         CodeNotFound,
	ErrDuplicate:        CodeDuplicate,
	ErrInvalidInput:     CodeInvalidInput,
	ErrConfigLoad:       CodeConfigLoad,
	ErrCyclicDependency: CodeCyclicDependency,
	ErrProviderError:    CodeProviderError,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}
