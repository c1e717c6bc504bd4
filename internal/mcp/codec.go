package mcp

import (
	"encoding/json"
	"log/slog"

	"awsdev/internal/logging"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	unencodableMessage = "tool result could not be encoded"
)

// Response is the wire envelope returned for every tool call.
type Response struct {
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	ErrorKind ErrorKind       `json:"errorKind,omitempty"`
	Message   string          `json:"message,omitempty"`
	Code      string          `json:"code,omitempty"`
	Retryable *bool           `json:"retryable,omitempty"`
}

func (r Response) IsError() bool { return r.Status == statusError }

type ResultCodec struct {
	logger *slog.Logger
}

func NewResultCodec(logger *slog.Logger) *ResultCodec {
	return &ResultCodec{logger: logging.OrDiscard(logger)}
}

// Encode never fails. A success value that cannot be marshaled becomes an
// Internal failure with a fixed message.
func (c *ResultCodec) Encode(result InvocationResult) Response {
	if failure, ok := result.Failure(); ok {
		return errorResponse(failure)
	}
	data, err := json.Marshal(result.Value())
	if err != nil {
		c.log().Error("encode tool result", "err", err)
		return errorResponse(Failure{Kind: KindInternal, Message: unencodableMessage})
	}
	return Response{Status: statusSuccess, Result: data}
}

func (c *ResultCodec) log() *slog.Logger {
	if c == nil {
		return logging.Discard()
	}
	return c.logger
}

func errorResponse(failure Failure) Response {
	kind := failure.Kind
	if kind == "" {
		kind = KindInternal
	}
	retryable := failure.Retryable
	return Response{
		Status:    statusError,
		ErrorKind: kind,
		Message:   failure.Message,
		Code:      failure.Code,
		Retryable: &retryable,
	}
}
