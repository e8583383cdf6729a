// Copyright (c) 2025–2026 The measurement-control-drivers developers.
// All rights reserved.
// Project site: https://github.com/CesarHernandezFogued/measurement-control-drivers
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package mcd

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

// WriteBlock sends prefix followed by the samples framed as an IEEE 488.2
// definite-length block: '#', the digit count of the byte length, the byte
// length, and the little-endian float32 payload. The whole message goes out
// in a single write so the transport cannot interleave the terminator into
// the payload.
func (s *Session) WriteBlock(prefix string, data []float32) error {
	if s.closed {
		return &CommandError{Cmd: prefix, Err: ErrClosed}
	}
	size := strconv.Itoa(4 * len(data))

	var msg bytes.Buffer
	msg.Grow(len(prefix) + len(size) + 4*len(data) + 3)
	msg.WriteString(prefix)
	msg.WriteByte('#')
	msg.WriteString(strconv.Itoa(len(size)))
	msg.WriteString(size)
	if err := binary.Write(&msg, binary.LittleEndian, data); err != nil {
		return &CommandError{Cmd: prefix, Err: err}
	}
	msg.WriteByte(s.writeTerm)

	s.logger.Debug().Str("cmd", prefix).Int("samples", len(data)).Msg("write block")
	if _, err := s.rwc.Write(msg.Bytes()); err != nil {
		return &CommandError{Cmd: prefix, Err: err}
	}
	return nil
}
