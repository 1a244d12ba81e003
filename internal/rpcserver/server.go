package rpcserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/dcmio/dcm/internal/store"
)

// Server dispatches JSON-RPC 2.0 requests to registered operations.
type Server struct {
	Registry *Registry
	Logger   *slog.Logger
}

// NewServer builds a Server backed by registry.
func NewServer(registry *Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Registry: registry, Logger: logger}
}

// Run serves JSON-RPC requests line-by-line over r/w until ctx is canceled
// or r returns EOF. Each line is one request; each response is written as
// one line.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.handleMessage(ctx, line)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// handleMessage decodes one request line and dispatches it. A malformed
// request still gets a JSON-RPC error response with a nil ID.
func (s *Server) handleMessage(ctx context.Context, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return &Response{JSONRPC: "2.0", Error: &RPCError{Code: ErrCodeParse, Message: "invalid JSON-RPC request: " + err.Error()}}
	}
	return s.Dispatch(ctx, &req)
}

// Dispatch routes req to the matching registered operation.
func (s *Server) Dispatch(ctx context.Context, req *Request) *Response {
	resp := &Response{JSONRPC: "2.0", ID: req.ID}

	if req.Method == "operations.list" {
		resp.Result = s.Registry.List()
		return resp
	}

	op, ok := s.Registry.Get(req.Method)
	if !ok {
		resp.Error = &RPCError{Code: ErrCodeMethodNotFound, Message: "unknown method: " + req.Method}
		return resp
	}

	result, err := op.Execute(ctx, req.Params)
	if err != nil {
		resp.Error = toRPCError(err)
		return resp
	}
	resp.Result = result
	return resp
}

// toRPCError maps the core's typed store.Error kinds onto JSON-RPC error
// codes; anything else surfaces as an internal error without leaking its
// message verbatim.
func toRPCError(err error) *RPCError {
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		code := ErrCodeInternal
		switch storeErr.Kind {
		case store.KindNotFound:
			code = ErrCodeNotFound
		case store.KindValidation:
			code = ErrCodeInvalidParams
		case store.KindBrokenContract:
			code = ErrCodeBrokenContract
		case store.KindConflict:
			code = ErrCodeConflict
		case store.KindForbidden:
			code = ErrCodeForbidden
		}
		return &RPCError{Code: code, Message: storeErr.Error(), Data: map[string]string{"kind": string(storeErr.Kind)}}
	}
	return &RPCError{Code: ErrCodeInternal, Message: "internal error"}
}
