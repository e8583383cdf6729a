// Copyright (c) 2025–2026 The measurement-control-drivers developers.
// All rights reserved.
// Project site: https://github.com/CesarHernandezFogued/measurement-control-drivers
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package mcd

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by session operations after Close has been called.
var ErrClosed = errors.New("session is closed")

// ConnectError reports a resource that could not be opened. It is fatal; no
// retry is attempted on the same endpoint.
type ConnectError struct {
	Resource string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("cannot open %s: %s", e.Resource, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// CommandError reports an I/O failure while writing a command or reading its
// reply. The offending command is attached for diagnosability.
type CommandError struct {
	Cmd string
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q: %s", e.Cmd, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// RangeError reports a caller-supplied value that violates a static
// invariant, such as a stop frequency at or below the start frequency. It is
// produced before any I/O is attempted.
type RangeError struct {
	Param   string
	Value   float64
	Message string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Param, e.Value, e.Message)
}
