// Copyright (c) 2025–2026 The measurement-control-drivers developers.
// All rights reserved.
// Project site: https://github.com/CesarHernandezFogued/measurement-control-drivers
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package mcd

// WriteAny sends the first command variant that the instrument accepts,
// trying the candidates in order. Vendors spell the same logical instruction
// differently (FREQ:STAR vs SENS:FREQ:STAR); callers list the spellings from
// most to least common. If every variant fails, the error from the last
// attempt is returned. The winning variant is not cached; each call starts
// over from the first candidate.
func (s *Session) WriteAny(cmds ...string) error {
	var last error
	for _, cmd := range cmds {
		if err := s.Write(cmd); err != nil {
			last = err
			continue
		}
		return nil
	}
	return last
}

// QueryAny queries using the first command variant that yields a reply,
// trying the candidates in order. If every variant fails, the error from the
// last attempt is returned.
func (s *Session) QueryAny(cmds ...string) (string, error) {
	var last error
	for _, cmd := range cmds {
		reply, err := s.Query(cmd)
		if err != nil {
			last = err
			continue
		}
		return reply, nil
	}
	return "", last
}
