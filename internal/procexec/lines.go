// SPDX-License-Identifier: MPL-2.0

package procexec

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

type (
	// lineCollector splits stdout and stderr into lines. Both streams share
	// one mutex so Output keeps arrival order and onLine calls never overlap.
	lineCollector struct {
		mu     sync.Mutex
		onLine func(string)
		output []string
		stderr []string
		bufs   [2]bytes.Buffer
	}

	streamWriter struct {
		c      *lineCollector
		stderr bool
	}
)

func newLineCollector(onLine func(string)) *lineCollector {
	return &lineCollector{onLine: onLine}
}

func (c *lineCollector) stream(stderr bool) io.Writer {
	return &streamWriter{c: c, stderr: stderr}
}

func (w *streamWriter) Write(p []byte) (int, error) {
	c := w.c
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := &c.bufs[index(w.stderr)]
	buf.Write(p)
	for {
		data := buf.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(data[:i])
		buf.Next(i + 1)
		c.emit(line, w.stderr)
	}
	return len(p), nil
}

// flush emits trailing output that did not end in a newline.
func (c *lineCollector) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.bufs {
		if c.bufs[i].Len() > 0 {
			line := c.bufs[i].String()
			c.bufs[i].Reset()
			c.emit(line, i == 1)
		}
	}
}

func (c *lineCollector) emit(line string, stderr bool) {
	line = strings.TrimSuffix(line, "\r")
	c.output = append(c.output, line)
	if stderr {
		c.stderr = append(c.stderr, line)
	}
	if c.onLine != nil {
		c.onLine(line)
	}
}

func index(stderr bool) int {
	if stderr {
		return 1
	}
	return 0
}
