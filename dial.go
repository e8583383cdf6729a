// Copyright (c) 2025–2026 The measurement-control-drivers developers.
// All rights reserved.
// Project site: https://github.com/CesarHernandezFogued/measurement-control-drivers
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package mcd

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// Raw-socket TCP ports for the VISA endpoint suffixes. HiSLIP listens on its
// IANA port; everything else is served on the conventional SCPI raw port.
const (
	portHiSLIP = 4880
	portSCPI   = 5025
)

// hostSuffixes is the probe order used by DialHost when only a bare host is
// given: HiSLIP first, then the classic instrument endpoint.
var hostSuffixes = []string{"hislip0", "inst0"}

// Dial opens a VISA-style resource and wraps it in a Session. Supported
// resource forms:
//
//	TCPIP0::<host>::<suffix>::INSTR   suffix hislip* or inst*
//	TCPIP0::<host>::<port>::SOCKET    explicit raw-socket port
//	TCPIP0::<host>::INSTR
//	ASRL::<device>::INSTR             serial port, e.g. ASRL::/dev/ttyUSB0::INSTR
//
// An unreachable endpoint surfaces as a *ConnectError.
func Dial(resource string, opts ...SessionOption) (*Session, error) {
	serialDev, addr, err := parseResource(resource)
	if err != nil {
		return nil, err
	}

	if serialDev != "" {
		return dialSerial(resource, serialDev, opts...)
	}

	conn, err := net.DialTimeout("tcp", addr, DefaultTimeout)
	if err != nil {
		return nil, &ConnectError{Resource: resource, Err: err}
	}
	sess, err := NewSession(conn, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return sess, nil
}

// DialHost probes the known endpoint suffixes on the given bare host in
// order, returning a Session on the first that accepts the connection and
// identifies. If none does, the error from the last candidate is returned.
func DialHost(host string, opts ...SessionOption) (*Session, error) {
	var last error
	for _, suffix := range hostSuffixes {
		resource := fmt.Sprintf("TCPIP0::%s::%s::INSTR", host, suffix)
		sess, err := Dial(resource, opts...)
		if err != nil {
			last = err
			continue
		}
		return sess, nil
	}
	return nil, last
}

func dialSerial(resource, device string, opts ...SessionOption) (*Session, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: 115200})
	if err != nil {
		return nil, &ConnectError{Resource: resource, Err: err}
	}
	if err := port.SetReadTimeout(DefaultTimeout); err != nil {
		port.Close()
		return nil, &ConnectError{Resource: resource, Err: err}
	}
	sess, err := NewSession(port, opts...)
	if err != nil {
		port.Close()
		return nil, err
	}
	return sess, nil
}

// parseResource splits a VISA-style resource string into either a serial
// device or a TCP dial address.
func parseResource(resource string) (serialDev, addr string, err error) {
	parts := strings.Split(strings.TrimSpace(resource), "::")
	proto := strings.ToUpper(parts[0])

	switch {
	case strings.HasPrefix(proto, "TCPIP"):
		addr, err = tcpAddr(resource, parts)
		return "", addr, err
	case strings.HasPrefix(proto, "ASRL"):
		if len(parts) < 2 || parts[1] == "" {
			return "", "", fmt.Errorf("resource %q: missing serial device", resource)
		}
		return parts[1], "", nil
	default:
		return "", "", fmt.Errorf("resource %q: unsupported protocol %q", resource, parts[0])
	}
}

func tcpAddr(resource string, parts []string) (string, error) {
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("resource %q: missing host", resource)
	}
	host := parts[1]

	port := portSCPI
	if len(parts) >= 3 && !isResourceClass(parts[2]) {
		p, err := suffixPort(parts[2])
		if err != nil {
			return "", fmt.Errorf("resource %q: %w", resource, err)
		}
		port = p
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// suffixPort maps a VISA endpoint suffix to its raw-socket TCP port. Numeric
// suffixes (the SOCKET form) are used verbatim.
func suffixPort(suffix string) (int, error) {
	s := strings.ToLower(suffix)
	switch {
	case strings.HasPrefix(s, "hislip"):
		return portHiSLIP, nil
	case strings.HasPrefix(s, "inst"):
		return portSCPI, nil
	}
	if p, err := strconv.Atoi(s); err == nil && p > 0 && p < 1<<16 {
		return p, nil
	}
	return 0, fmt.Errorf("unknown endpoint suffix %q", suffix)
}

func isResourceClass(s string) bool {
	switch strings.ToUpper(s) {
	case "INSTR", "SOCKET":
		return true
	}
	return false
}
