// White-box tests for the frame decoder. These intentionally use `package
// session` rather than `package session_test` so they can exercise the
// unexported reader directly without exporting it. This deviates from the
// project's general _test-package convention, which is an accepted trade-off
// for internal unit tests.
package session

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func muxRecord(stream byte, payload string) []byte {
	rec := make([]byte, 8+len(payload))
	rec[0] = stream
	binary.BigEndian.PutUint32(rec[4:8], uint32(len(payload)))
	copy(rec[8:], payload)
	return rec
}

func TestFrameReaderMultiplexed(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(muxRecord(streamStdout, "hello"))
	stream.Write(muxRecord(streamStderr, "oops"))
	stream.Write(muxRecord(streamSystemErr, "broken pipe"))
	stream.Write(muxRecord(9, "??"))

	fr := newFrameReader(bufio.NewReader(&stream), false)

	want := []Frame{
		{Kind: FrameStdout, Data: []byte("hello")},
		{Kind: FrameStderr, Data: []byte("oops")},
		{Kind: FrameError, Data: []byte("broken pipe")},
		{Kind: FrameOther, Data: []byte("??")},
	}
	for i, w := range want {
		got, err := fr.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if got.Kind != w.Kind || !bytes.Equal(got.Data, w.Data) {
			t.Fatalf("frame %d = {%s %q}, want {%s %q}", i, got.Kind, got.Data, w.Kind, w.Data)
		}
	}

	if _, err := fr.Next(); err != io.EOF {
		t.Fatalf("after last frame err = %v, want io.EOF", err)
	}
}

func TestFrameReaderTruncatedHeader(t *testing.T) {
	fr := newFrameReader(bufio.NewReader(strings.NewReader("\x01\x00\x00")), false)
	if _, err := fr.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("truncated header err = %v, want decode error", err)
	}
}

func TestFrameReaderTruncatedPayload(t *testing.T) {
	rec := muxRecord(streamStdout, "hello")
	fr := newFrameReader(bufio.NewReader(bytes.NewReader(rec[:10])), false)
	if _, err := fr.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("truncated payload err = %v, want decode error", err)
	}
}

func TestFrameReaderTTY(t *testing.T) {
	fr := newFrameReader(bufio.NewReader(strings.NewReader("hi\r\n$ ")), true)

	got, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.Kind != FrameConsole || string(got.Data) != "hi\r\n$ " {
		t.Fatalf("frame = {%s %q}", got.Kind, got.Data)
	}

	if _, err := fr.Next(); err != io.EOF {
		t.Fatalf("after stream end err = %v, want io.EOF", err)
	}
}

func TestFrameReaderTTYChunked(t *testing.T) {
	big := strings.Repeat("x", outputChunk+10)
	fr := newFrameReader(bufio.NewReader(strings.NewReader(big)), true)

	var total int
	for {
		frame, err := fr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if len(frame.Data) > outputChunk {
			t.Fatalf("chunk of %d bytes exceeds bound %d", len(frame.Data), outputChunk)
		}
		total += len(frame.Data)
	}
	if total != len(big) {
		t.Fatalf("relayed %d bytes, want %d", total, len(big))
	}
}
