// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore_test

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/rtcore"
)

// =============================================================================
// Console - Byte Stream Diagnostics
// =============================================================================

// serialPort records bytes and flushes like a UART driver.
type serialPort struct {
	bytes.Buffer
	flushes int
	failAt  int // fail the n-th WriteByte when > 0
	written int
}

func (p *serialPort) WriteByte(b byte) error {
	p.written++
	if p.failAt > 0 && p.written == p.failAt {
		return errors.New("uart: tx error")
	}
	return p.Buffer.WriteByte(b)
}

func (p *serialPort) Flush() error {
	p.flushes++
	return nil
}

func TestConsoleLines(t *testing.T) {
	port := &serialPort{}
	c := rtcore.NewConsole(port)

	require.NoError(t, c.Printf("average %.1f", 5.5))
	require.NoError(t, c.Printf("with newline\n"))
	require.NoError(t, c.Println("All", "tasks", "created"))
	require.Equal(t, "average 5.5\nwith newline\nAll tasks created\n", port.String())
	require.Equal(t, 3, port.flushes)
	require.Zero(t, c.Overflows())
}

func TestConsoleTruncates(t *testing.T) {
	var buf bytes.Buffer
	c := rtcore.NewConsole(&buf).WithMaxLine(8)

	err := c.Printf("0123456789abcdef")
	require.ErrorIs(t, err, rtcore.ErrBufferOverflow)
	require.Equal(t, "01234567\n", buf.String(), "truncated line still delivered")
	require.EqualValues(t, 1, c.Overflows())

	buf.Reset()
	require.NoError(t, c.Printf("12345678"), "line at the bound fits")
	require.Equal(t, "12345678\n", buf.String())
}

func TestConsoleTruncatesOnRuneBoundary(t *testing.T) {
	var buf bytes.Buffer
	c := rtcore.NewConsole(&buf).WithMaxLine(4)

	err := c.Printf("abcé") // é is two bytes, the bound falls inside it
	require.ErrorIs(t, err, rtcore.ErrBufferOverflow)
	require.Equal(t, "abc\n", buf.String())
	require.True(t, utf8.Valid(buf.Bytes()))

	buf.Reset()
	err = c.Printf("日本語") // three 3-byte runes
	require.ErrorIs(t, err, rtcore.ErrBufferOverflow)
	require.Equal(t, "日\n", buf.String())
}

func TestConsoleDiag(t *testing.T) {
	var buf bytes.Buffer
	c := rtcore.NewConsole(&buf)

	require.NoError(t, c.Diag(fmt.Errorf("producer 3: %w", rtcore.ErrQueueFull)))
	require.Equal(t, "error: producer 3: "+rtcore.ErrQueueFull.Error()+"\n", buf.String())
}

func TestConsoleWriteError(t *testing.T) {
	port := &serialPort{failAt: 3}
	c := rtcore.NewConsole(port)

	err := c.Printf("hello")
	require.EqualError(t, err, "uart: tx error")
	require.Equal(t, "he", port.String())
	require.Zero(t, port.flushes)
}

func TestConsoleWithMaxLinePanics(t *testing.T) {
	require.Panics(t, func() { rtcore.NewConsole(&bytes.Buffer{}).WithMaxLine(0) })
}

// TestConsoleNoInterleave writes lines from many goroutines and checks that
// every output line is one complete message.
func TestConsoleNoInterleave(t *testing.T) {
	const writers, lines = 8, 50
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	c := rtcore.NewConsole(w)

	errs := make(chan error, writers*lines)
	var wg sync.WaitGroup
	for id := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range lines {
				errs <- c.Printf("writer %d line %d %s", id, n, strings.Repeat("x", 40))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var id, n int
		var tail string
		_, err := fmt.Sscanf(sc.Text(), "writer %d line %d %s", &id, &n, &tail)
		require.NoErrorf(t, err, "malformed line %q", sc.Text())
		require.Equalf(t, strings.Repeat("x", 40), tail, "line %q interleaved", sc.Text())
		seen[sc.Text()] = true
	}
	require.Len(t, seen, writers*lines)
}
