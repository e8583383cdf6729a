// Copyright (c) 2025–2026 The measurement-control-drivers developers.
// All rights reserved.
// Project site: https://github.com/CesarHernandezFogued/measurement-control-drivers
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package mcd provides the session layer shared by the instrument drivers
// under lib/: newline-terminated ASCII commands and single-line replies over
// an exclusively owned transport handle. A Session is not safe for concurrent
// use; callers sharing one instrument must serialize access themselves.
package mcd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

const (
	// DefaultTimeout bounds each read of a reply line.
	DefaultTimeout = 10 * time.Second

	// maxErrorReads caps DrainErrors so a device that keeps reporting
	// errors cannot hang the loop.
	maxErrorReads = 20
)

// Session models one open connection to one instrument. It owns the handle
// exclusively and frames commands with the configured terminators.
type Session struct {
	rwc       io.ReadWriteCloser
	br        *bufio.Reader
	writeTerm byte
	readTerm  byte
	timeout   time.Duration
	logger    zerolog.Logger
	identify  bool
	idn       string
	vendor    string
	closeCmds []string
	closed    bool
}

// SessionOption applies an option to the session.
type SessionOption func(*Session)

// WithTimeout sets the per-reply read timeout.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

// WithTerminators sets the write and read line terminators.
func WithTerminators(write, read byte) SessionOption {
	return func(s *Session) {
		s.writeTerm = write
		s.readTerm = read
	}
}

// WithLogger routes command/reply tracing to the given logger. Tracing is
// disabled by default.
func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithoutIdentification skips the *CLS / *IDN? handshake during NewSession,
// for instruments that do not answer identification queries.
func WithoutIdentification() SessionOption {
	return func(s *Session) { s.identify = false }
}

// NewSession wraps an open transport handle. Unless disabled via
// WithoutIdentification, it clears the device status with *CLS and caches the
// *IDN? reply, whose first comma-separated field becomes the vendor token
// used for dialect selection.
func NewSession(rwc io.ReadWriteCloser, opts ...SessionOption) (*Session, error) {
	s := Session{
		rwc:       rwc,
		writeTerm: '\n',
		readTerm:  '\n',
		timeout:   DefaultTimeout,
		logger:    zerolog.Nop(),
		identify:  true,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.br = bufio.NewReader(rwc)

	if s.identify {
		if err := s.Write("*CLS"); err != nil {
			return nil, err
		}
		idn, err := s.Query("*IDN?")
		if err != nil {
			return nil, err
		}
		s.idn = idn
		s.vendor = strings.ToUpper(idn)
		if i := strings.IndexByte(idn, ','); i >= 0 {
			s.vendor = strings.ToUpper(idn[:i])
		}
	}

	return &s, nil
}

// ID returns the cached *IDN? reply, or "" when identification was skipped.
func (s *Session) ID() string { return s.idn }

// Vendor returns the upper-cased first field of the *IDN? reply.
func (s *Session) Vendor() string { return s.vendor }

// Logger returns the session logger so drivers can report soft failures.
func (s *Session) Logger() *zerolog.Logger { return &s.logger }

// Write sends a command that produces no reply. Leading and trailing
// whitespace is removed before the terminator is appended.
func (s *Session) Write(cmd string) error {
	if s.closed {
		return &CommandError{Cmd: cmd, Err: ErrClosed}
	}
	cmd = strings.TrimSpace(cmd)
	s.logger.Debug().Str("cmd", cmd).Msg("write")
	if _, err := fmt.Fprintf(s.rwc, "%s%c", cmd, s.writeTerm); err != nil {
		return &CommandError{Cmd: cmd, Err: err}
	}
	return nil
}

// Writef formats according to a format specifier and sends the command.
func (s *Session) Writef(format string, a ...any) error {
	return s.Write(fmt.Sprintf(format, a...))
}

// Query sends a command and reads one line of reply, trimmed of the
// terminator and surrounding whitespace.
func (s *Session) Query(cmd string) (string, error) {
	if err := s.Write(cmd); err != nil {
		return "", err
	}
	if dr, ok := s.rwc.(interface{ SetReadDeadline(time.Time) error }); ok {
		if err := dr.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
			return "", &CommandError{Cmd: cmd, Err: err}
		}
	}
	reply, err := s.br.ReadString(s.readTerm)
	if err != nil && err != io.EOF {
		return "", &CommandError{Cmd: cmd, Err: err}
	}
	reply = strings.TrimSpace(strings.TrimSuffix(reply, string(s.readTerm)))
	s.logger.Debug().Str("cmd", cmd).Str("reply", reply).Msg("query")
	return reply, nil
}

// Queryf formats according to a format specifier and queries the instrument.
func (s *Session) Queryf(format string, a ...any) (string, error) {
	return s.Query(fmt.Sprintf(format, a...))
}

// DrainErrors reads the SCPI error queue via SYST:ERR? until the device
// reports code 0 or maxErrorReads replies have been collected. All replies
// read are returned in order.
func (s *Session) DrainErrors() ([]string, error) {
	var msgs []string
	for i := 0; i < maxErrorReads; i++ {
		reply, err := s.Query("SYST:ERR?")
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, reply)
		if strings.HasPrefix(reply, "0") {
			break
		}
	}
	return msgs, nil
}

// Reset clears device status, resets to factory defaults, and waits for the
// reset to complete via *OPC?.
func (s *Session) Reset() error {
	if err := s.Write("*CLS"); err != nil {
		return err
	}
	if err := s.Write("*RST"); err != nil {
		return err
	}
	_, err := s.Query("*OPC?")
	return err
}

// OnClose registers commands to send before the handle is released. Drivers
// use it for safety side effects such as disabling outputs.
func (s *Session) OnClose(cmds ...string) {
	s.closeCmds = append(s.closeCmds, cmds...)
}

// Close sends the registered shutdown commands and releases the handle. It
// is safe to call more than once; subsequent calls return nil.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	for _, cmd := range s.closeCmds {
		_, werr := fmt.Fprintf(s.rwc, "%s%c", cmd, s.writeTerm)
		err = multierr.Append(err, werr)
	}
	return multierr.Append(err, s.rwc.Close())
}
