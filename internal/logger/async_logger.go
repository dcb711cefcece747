// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"fmt"
	"io"
	"os"
)

// AsyncLogger decouples its callers from the latency of a rotating log file
// by handing writes off to a single background goroutine through a bounded
// channel. A full buffer
// drops the message rather than blocking the writer.
type AsyncLogger struct {
	w      io.Writer
	msgs   chan []byte
	done   chan struct{}
	closed chan struct{}
}

// NewAsyncLogger starts the background writer goroutine and returns a
// logger accepting up to bufferSize pending messages before it starts
// dropping writes.
func NewAsyncLogger(w io.Writer, bufferSize int) *AsyncLogger {
	a := &AsyncLogger{
		w:      w,
		msgs:   make(chan []byte, bufferSize),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncLogger) run() {
	defer close(a.closed)
	for {
		select {
		case msg, ok := <-a.msgs:
			if !ok {
				return
			}
			a.w.Write(msg)
		case <-a.done:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case msg := <-a.msgs:
					a.w.Write(msg)
				default:
					return
				}
			}
		}
	}
}

// Write implements io.Writer. It never blocks: a full buffer causes p to be
// dropped, with a one-line warning to stderr.
func (a *AsyncLogger) Write(p []byte) (int, error) {
	msg := append([]byte(nil), p...)
	select {
	case a.msgs <- msg:
		return len(p), nil
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
		return len(p), nil
	}
}

// Close signals the background goroutine to drain and exit, then waits for
// it, closing the underlying writer if it implements io.Closer.
func (a *AsyncLogger) Close() error {
	close(a.done)
	<-a.closed
	if c, ok := a.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
