package sse

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_WritesValidSSEFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.WriteEvent("message", []byte(`{"a":1}`)))
	require.NoError(t, w.WriteEvent("error", []byte(`{"error":"boom"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.True(t, w.Started())

	want := "event: message\ndata: {\"a\":1}\n\n" +
		"event: error\ndata: {\"error\":\"boom\"}\n\n"
	assert.Equal(t, want, rec.Body.String())
}

func TestWriter_MultilineDataAndNoName(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.WriteEvent("", []byte("first\nsecond")))
	assert.Equal(t, "data: first\ndata: second\n\n", rec.Body.String())
}

type plainWriter struct{ http.ResponseWriter }

func TestNewWriter_RequiresFlusher(t *testing.T) {
	_, err := NewWriter(plainWriter{httptest.NewRecorder()})
	assert.ErrorIs(t, err, ErrNoFlusher)
}

func TestDecoder_ParsesFrames(t *testing.T) {
	input := ": keep-alive\n" +
		"event: message\n" +
		"id: 7\n" +
		"data: {\"n\":1}\n\n" +
		"data:{\"n\":2}\n\n" +
		"retry: 1000\n\n" +
		"data: first line\n" +
		"data: second line\n\n" +
		"data: trailing"

	d := NewDecoder(strings.NewReader(input))

	f, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, Frame{Event: "message", ID: "7", Data: `{"n":1}`}, f)

	f, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"n":2}`, f.Data)
	assert.Empty(t, f.Event)

	f, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", f.Data)

	f, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "trailing", f.Data)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_ReadsOneFrameAtATime(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()

	d := NewDecoder(pr)
	go func() {
		fmt.Fprint(pw, "data: one\n\n")
	}()

	f, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", f.Data)

	go func() {
		fmt.Fprint(pw, "data: two\n\n")
		pw.Close()
	}()
	f, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "two", f.Data)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_ReadError(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		fmt.Fprint(pw, "data: partial\n")
		pw.CloseWithError(errors.New("connection reset"))
	}()

	_, err := NewDecoder(pr).Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotErrorIs(t, err, io.EOF)
}

func TestWriterDecoder_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	sent := []string{`{"kind":"status-update"}`, "multi\nline", `{"kind":"artifact-update"}`}
	for _, s := range sent {
		require.NoError(t, w.WriteEvent("message", []byte(s)))
	}

	d := NewDecoder(strings.NewReader(rec.Body.String()))
	var got []string
	for {
		f, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "message", f.Event)
		got = append(got, f.Data)
	}
	assert.Equal(t, sent, got)
}
