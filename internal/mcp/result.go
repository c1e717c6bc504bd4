package mcp

// Failure is the error half of an InvocationResult.
type Failure struct {
	Kind      ErrorKind
	Message   string
	Code      string
	Retryable bool
}

// InvocationResult is exactly one of a success value or a Failure. Build it
// with Success or Fail.
type InvocationResult struct {
	ok       bool
	value    any
	failure  Failure
	metadata ToolMetadata
}

func Success(value any) InvocationResult {
	return InvocationResult{ok: true, value: value}
}

func Fail(failure Failure) InvocationResult {
	if failure.Kind == "" {
		failure.Kind = KindInternal
	}
	return InvocationResult{failure: failure}
}

func (r InvocationResult) IsSuccess() bool { return r.ok }

func (r InvocationResult) Value() any {
	if !r.ok {
		return nil
	}
	return r.value
}

func (r InvocationResult) Failure() (Failure, bool) {
	if r.ok {
		return Failure{}, false
	}
	return r.failure, true
}

func (r InvocationResult) Metadata() ToolMetadata { return r.metadata }

func (r InvocationResult) withMetadata(meta ToolMetadata) InvocationResult {
	r.metadata = meta
	return r
}
