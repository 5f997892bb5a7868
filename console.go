// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"code.hybscloud.com/atomix"
	"github.com/golang/glog"
)

// DefaultMaxLine is the default line bound of a Console, newline excluded.
const DefaultMaxLine = 128

// Console writes diagnostic and status lines to a byte-stream collaborator
// such as a serial port.
//
// Lines from different tasks never interleave. Each line is assembled in a
// bounded buffer; a line longer than the bound is truncated at a rune
// boundary, still written, and reported with ErrBufferOverflow and a
// warning log.
type Console struct {
	mu        sync.Mutex
	w         io.ByteWriter
	maxLine   int
	line      []byte
	overflows atomix.Uint64
}

// NewConsole creates a Console writing to w.
// If w has a Flush() error method it is flushed after every line.
func NewConsole(w io.ByteWriter) *Console {
	return &Console{w: w, maxLine: DefaultMaxLine}
}

// WithMaxLine sets the line bound. Panics if n < 1.
func (c *Console) WithMaxLine(n int) *Console {
	if n < 1 {
		panic("rtcore: console line bound must be >= 1")
	}
	c.mu.Lock()
	c.maxLine = n
	c.mu.Unlock()
	return c
}

// Printf writes one formatted line. A trailing newline in format is
// optional.
func (c *Console) Printf(format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line = fmt.Appendf(c.line[:0], format, args...)
	return c.emit()
}

// Println writes its operands as one line, separated by spaces.
func (c *Console) Println(args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line = fmt.Appendln(c.line[:0], args...)
	return c.emit()
}

// Diag reports a failure as diagnostic text.
func (c *Console) Diag(err error) error {
	return c.Printf("error: %v", err)
}

// Overflows returns the number of truncated lines.
func (c *Console) Overflows() uint64 {
	return c.overflows.Load()
}

type flusher interface {
	Flush() error
}

// emit writes c.line plus a newline. c.mu must be held.
func (c *Console) emit() error {
	body := c.line
	if n := len(body); n > 0 && body[n-1] == '\n' {
		body = body[:n-1]
	}
	overflow := len(body) > c.maxLine
	if overflow {
		// Cut on a rune boundary so the stream stays valid UTF-8.
		cut := c.maxLine
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	for _, b := range body {
		if err := c.w.WriteByte(b); err != nil {
			return err
		}
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	if f, ok := c.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	if overflow {
		c.overflows.Add(1)
		glog.Warningf("console line truncated to %d bytes", c.maxLine)
		return ErrBufferOverflow
	}
	return nil
}
