// Package cherr defines the error taxonomy for the native-protocol core:
// protocol violations, unsupported-but-valid wire content, and wrapped I/O
// failures. Callers discriminate with errors.As, never by matching
// strings. A server-reported Exception is not one of these: poll() returns
// no error values at all (connect/send/recv failures and malformed wire
// reads trip the breaker inside it), so an Exception's display text
// travels as a plain string — parse.Event.ExceptionMessage, logged by
// package conn — with nothing for a caller to errors.As against.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cherr

import (
	"fmt"

	"github.com/pkg/errors"
)

type (
	// ProtocolError is the bytes received do not conform to the native
	// protocol: an overlong varint, an oversized string length, an
	// unexpected packet during handshake.
	ProtocolError struct {
		Msg string
	}

	// UnimplementedError is structurally valid but unsupported content:
	// a server revision too old for the fields this core encodes, a
	// server packet type this core does not implement, or a column type
	// whose skip-plan is unknown.
	UnimplementedError struct {
		Msg string
	}

	// IOError wraps a syscall failure with the connection phase it
	// occurred in ("connect", "handshake", "send", "recv").
	IOError struct {
		Op    string
		Phase string
		Err   error
	}
)

func NewProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Msg }

func NewUnimplementedError(format string, args ...any) *UnimplementedError {
	return &UnimplementedError{Msg: fmt.Sprintf(format, args...)}
}

func (e *UnimplementedError) Error() string { return "unimplemented: " + e.Msg }

func NewIOError(op, phase string, err error) *IOError {
	return &IOError{Op: op, Phase: phase, Err: errors.Wrap(err, op)}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s: %s: %v", e.Phase, e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
