// Package connutil carries the connection flags shared by the example
// programs and turns them into an open instrument session.
package connutil

import (
	"errors"
	"flag"
	"os"
	"time"

	mcd "github.com/CesarHernandezFogued/measurement-control-drivers"
	"github.com/CesarHernandezFogued/measurement-control-drivers/lib/find"
	"github.com/rs/zerolog"
)

// Conn holds the connection parameters for one instrument. Exactly one of
// Resource, Host, or Serial must be set by the time Open is called.
type Conn struct {
	Resource string        // full VISA-style resource string
	Host     string        // bare host; endpoint suffixes are probed in order
	Serial   string        // serial device path, or "auto" to discover one
	Timeout  time.Duration // per-reply read timeout
	Debug    bool          // trace commands and replies to stderr
}

// AddFlags registers the connection flags. Call before flag.Parse.
func (c *Conn) AddFlags() {
	if c.Timeout == 0 {
		c.Timeout = mcd.DefaultTimeout
	}
	flag.StringVar(&c.Resource, "resource", c.Resource,
		"VISA resource string, e.g. TCPIP0::192.168.0.30::hislip0::INSTR")
	flag.StringVar(&c.Host, "host", c.Host,
		"instrument host; hislip0 and inst0 endpoints are probed in order")
	flag.StringVar(&c.Serial, "serial", c.Serial,
		`serial device path, or "auto" to pick the only attached instrument`)
	flag.DurationVar(&c.Timeout, "timeout", c.Timeout, "reply read timeout")
	flag.BoolVar(&c.Debug, "debug", c.Debug, "log every command and reply")
}

// Open dials the configured endpoint. Call after flag.Parse.
func (c *Conn) Open(opts ...mcd.SessionOption) (*mcd.Session, error) {
	opts = append([]mcd.SessionOption{mcd.WithTimeout(c.Timeout)}, opts...)
	if c.Debug {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
		opts = append(opts, mcd.WithLogger(logger))
	}

	switch {
	case c.Resource != "":
		return mcd.Dial(c.Resource, opts...)
	case c.Host != "":
		return mcd.DialHost(c.Host, opts...)
	case c.Serial == "auto":
		device, err := find.Find(find.InstrumentFilter)
		if err != nil {
			return nil, err
		}
		return mcd.Dial("ASRL::"+device+"::INSTR", opts...)
	case c.Serial != "":
		return mcd.Dial("ASRL::"+c.Serial+"::INSTR", opts...)
	}
	return nil, errors.New("no instrument endpoint: set -resource, -host, or -serial")
}
