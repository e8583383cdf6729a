// Package scpitest provides a scripted in-memory instrument used as the
// transport handle in driver tests. Commands written to it are recorded;
// replies are produced from handlers registered per command.
package scpitest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoReply is returned by Read when no scripted reply is pending, standing
// in for a transport read timeout.
var ErrNoReply = errors.New("scpitest: no pending reply")

// Instrument is an io.ReadWriteCloser that behaves like a SCPI device with a
// fixed script. The zero value is not usable; call New.
type Instrument struct {
	mu       sync.Mutex
	replies  map[string][]string
	failures map[string]error
	pending  bytes.Buffer
	partial  []byte
	written  []string
	closed   int
}

func New() *Instrument {
	return &Instrument{
		replies:  make(map[string][]string),
		failures: make(map[string]error),
	}
}

// Handle registers replies for a command. Successive queries of the command
// consume the replies in order; the last reply is sticky and answers every
// query after the script runs out.
func (ins *Instrument) Handle(cmd string, replies ...string) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	ins.replies[cmd] = replies
}

// FailWrites makes every write of cmd return err, simulating a transport
// fault on that command.
func (ins *Instrument) FailWrites(cmd string, err error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	ins.failures[cmd] = err
}

// Commands returns every command line written so far, in order.
func (ins *Instrument) Commands() []string {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return append([]string(nil), ins.written...)
}

// CloseCount reports how many times Close has been called.
func (ins *Instrument) CloseCount() int {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.closed
}

func (ins *Instrument) Write(p []byte) (int, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	data := append(ins.partial, p...)
	ins.partial = nil
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			ins.partial = data
			break
		}
		cmd := strings.TrimRight(string(data[:i]), "\r")
		data = data[i+1:]
		if err := ins.accept(cmd); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (ins *Instrument) accept(cmd string) error {
	// Binary block payloads may embed newlines; record only the command
	// part so scripts match on the SCPI header.
	if i := strings.IndexByte(cmd, '#'); i > 0 && strings.Contains(cmd[:i], ",") {
		cmd = cmd[:i]
	}
	ins.written = append(ins.written, cmd)
	if err, ok := ins.failures[cmd]; ok {
		return err
	}
	script, ok := ins.replies[cmd]
	if !ok || len(script) == 0 {
		return nil
	}
	reply := script[0]
	if len(script) > 1 {
		ins.replies[cmd] = script[1:]
	}
	fmt.Fprintf(&ins.pending, "%s\n", reply)
	return nil
}

func (ins *Instrument) Read(p []byte) (int, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	if ins.pending.Len() == 0 {
		return 0, ErrNoReply
	}
	return ins.pending.Read(p)
}

func (ins *Instrument) Close() error {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	ins.closed++
	return nil
}
