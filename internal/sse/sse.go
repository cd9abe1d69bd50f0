// Package sse reads and writes Server-Sent Events.
package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxLineSize bounds a single SSE line.
const MaxLineSize = 1 << 20

// ErrNoFlusher is returned by NewWriter when the ResponseWriter cannot flush.
var ErrNoFlusher = errors.New("sse: response writer does not support flushing")

// Frame is one dispatched event.
type Frame struct {
	Event string
	ID    string
	Data  string
}

// Writer writes Server-Sent Events to an http.ResponseWriter, flushing after
// every event so the client receives it immediately.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewWriter wraps w. It fails if w does not implement http.Flusher, since
// buffered delivery defeats incremental streaming.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNoFlusher
	}
	return &Writer{w: w, flusher: f}, nil
}

// Init sets the event-stream headers, commits the 200 status and flushes.
// It is called implicitly by the first WriteEvent.
func (sw *Writer) Init() {
	if sw.started {
		return
	}
	sw.started = true
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	sw.w.WriteHeader(http.StatusOK)
	sw.flusher.Flush()
}

// Started reports whether the stream headers have been committed.
func (sw *Writer) Started() bool { return sw.started }

// WriteEvent writes one event:
//
//	event: <name>\n
//	data: <line>\n   (one per line of data)
//	\n
//
// The event line is omitted when name is empty.
func (sw *Writer) WriteEvent(name string, data []byte) error {
	sw.Init()

	var b strings.Builder
	if name != "" {
		b.WriteString("event: ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(string(data), "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(sw.w, b.String()); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	sw.flusher.Flush()
	return nil
}

// Decoder parses Server-Sent Events from a stream, one frame per Next call.
// Nothing is decoded ahead of the caller asking for it.
//
// Format rules applied:
//   - "data:" lines (with or without a space after the colon) carry payload;
//     several data lines in one event are joined with newlines.
//   - "event:" and "id:" set the frame's name and id.
//   - Lines starting with ":" are comments and are ignored.
//   - An empty line dispatches the event; events with no data are dropped.
//   - A final event not followed by an empty line is still dispatched.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Decoder{scanner: s}
}

// Next returns the next frame, io.EOF once the stream is exhausted, or the
// underlying read error.
func (d *Decoder) Next() (Frame, error) {
	var (
		frame   Frame
		data    strings.Builder
		hasData bool
	)
	for d.scanner.Scan() {
		line := d.scanner.Text()
		if line == "" {
			if hasData {
				frame.Data = data.String()
				return frame, nil
			}
			frame = Frame{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			frame.Event = value
		case "id":
			frame.ID = value
		default:
			// Unknown fields are ignored.
		}
	}
	if err := d.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("sse: read: %w", err)
	}
	if hasData {
		frame.Data = data.String()
		return frame, nil
	}
	return Frame{}, io.EOF
}
