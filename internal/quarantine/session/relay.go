package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// inputChunk bounds a single read from the local input stream.
const inputChunk = 1024

// Conn is the session surface the relay needs: a source of typed output
// frames and an input sink. *Session implements it.
type Conn interface {
	Next() (Frame, error)
	Input() io.Writer
}

// Streams are the local endpoints of the relay.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Flusher is implemented by writers that buffer output. The relay flushes
// such writers after every frame so interactive output appears promptly.
type Flusher interface {
	Flush() error
}

// Run relays bytes between the local streams and the session until the first
// of three events: ctx is cancelled, the input loop ends (local EOF or error),
// or the output loop ends (closed stream or error).
//
// Whichever finishes first decides the outcome; cancellation counts as a
// clean end. The losing loops are abandoned, so bytes they have in flight may
// be dropped — the accepted price of immediate Ctrl-C response.
func Run(ctx context.Context, sess Conn, streams Streams) error {
	slog.Info("redirecting inputs and outputs")

	inputDone := make(chan error, 1)
	outputDone := make(chan error, 1)

	go func() { inputDone <- copyInput(sess, streams.In) }()
	go func() { outputDone <- copyOutput(sess, streams) }()

	select {
	case <-ctx.Done():
		slog.Info("session interrupted")
		return nil
	case err := <-inputDone:
		return err
	case err := <-outputDone:
		return err
	}
}

// copyInput moves bounded chunks from the local input to the session's input
// sink verbatim. Local end-of-input ends the loop cleanly.
func copyInput(sess Conn, in io.Reader) error {
	sink := sess.Input()
	buf := make([]byte, inputChunk)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write session input: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Info("EOF reached on input")
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
	}
}

// copyOutput routes session output frames to the local streams: stdout and
// console frames to Out, stderr frames to Err, flushing both after every
// frame. Error-marker and unrecognized frames are logged, never fatal. A
// closed output stream ends the loop cleanly.
func copyOutput(sess Conn, streams Streams) error {
	for {
		frame, err := sess.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read session output: %w", err)
		}

		switch frame.Kind {
		case FrameStdout, FrameConsole:
			if _, err := streams.Out.Write(frame.Data); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		case FrameStderr:
			if _, err := streams.Err.Write(frame.Data); err != nil {
				return fmt.Errorf("write error output: %w", err)
			}
		case FrameError:
			slog.Error("error frame from session", "message", string(frame.Data))
		default:
			slog.Info("unrecognized frame from session", "kind", frame.Kind.String(), "bytes", len(frame.Data))
		}

		if err := flush(streams.Out); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}
		if err := flush(streams.Err); err != nil {
			return fmt.Errorf("flush error output: %w", err)
		}
	}
}

func flush(w io.Writer) error {
	if f, ok := w.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
