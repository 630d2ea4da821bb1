package session

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// FrameKind tags one unit of the session's multiplexed output stream by its
// originating channel.
type FrameKind int

const (
	// FrameStdout carries bytes from the process's standard output.
	FrameStdout FrameKind = iota
	// FrameStderr carries bytes from the process's standard error.
	FrameStderr
	// FrameConsole carries raw bytes from a tty session, where the pseudo
	// terminal merges all channels into one.
	FrameConsole
	// FrameError carries an in-band error message reported by the engine.
	FrameError
	// FrameOther is any frame with an unrecognized channel tag.
	FrameOther
)

func (k FrameKind) String() string {
	switch k {
	case FrameStdout:
		return "stdout"
	case FrameStderr:
		return "stderr"
	case FrameConsole:
		return "console"
	case FrameError:
		return "error"
	default:
		return "other"
	}
}

// Frame is one discrete unit of session output.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// outputChunk bounds a single tty read.
const outputChunk = 1024

// Stream IDs used by the engine's stream multiplexing headers.
const (
	streamStdin  = 0
	streamStdout = 1
	streamStderr = 2
	// streamSystemErr is the engine's in-band channel for transport-level
	// error messages.
	streamSystemErr = 3
)

// frameReader decodes the engine's output stream into typed frames.
//
// With a tty the engine sends a single raw byte stream: every chunk becomes a
// console frame. Without one, output arrives as 8-byte-header multiplexed
// records which are split back into stdout/stderr/error frames.
type frameReader struct {
	r   *bufio.Reader
	tty bool
}

func newFrameReader(r *bufio.Reader, tty bool) *frameReader {
	return &frameReader{r: r, tty: tty}
}

// Next returns the next output frame. It returns io.EOF once the stream is
// closed and exhausted.
func (fr *frameReader) Next() (Frame, error) {
	if fr.tty {
		buf := make([]byte, outputChunk)
		n, err := fr.r.Read(buf)
		if n > 0 {
			return Frame{Kind: FrameConsole, Data: buf[:n]}, nil
		}
		if err == nil {
			err = io.EOF
		}
		return Frame{}, err
	}

	var header [8]byte
	if _, err := io.ReadFull(fr.r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Frame{}, fmt.Errorf("truncated stream header: %w", err)
		}
		return Frame{}, err
	}

	size := binary.BigEndian.Uint32(header[4:8])
	data := make([]byte, size)
	if _, err := io.ReadFull(fr.r, data); err != nil {
		return Frame{}, fmt.Errorf("truncated stream payload: %w", err)
	}

	switch header[0] {
	case streamStdout, streamStdin:
		// Stdin frames appear on the output stream only in tty-less echo
		// setups; the engine documents them as stdout-equivalent.
		return Frame{Kind: FrameStdout, Data: data}, nil
	case streamStderr:
		return Frame{Kind: FrameStderr, Data: data}, nil
	case streamSystemErr:
		return Frame{Kind: FrameError, Data: data}, nil
	default:
		return Frame{Kind: FrameOther, Data: data}, nil
	}
}
