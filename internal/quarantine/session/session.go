// Package session attaches an interactive shell inside the quarantine
// container and relays bytes between it and the local terminal.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"

	"github.com/quarantinehq/quarantine/internal/quarantine/engine"
)

// ErrNotAttached is returned by Attach when the engine does not hand back an
// attached bidirectional stream for the exec instance.
var ErrNotAttached = errors.New("engine did not return an attached exec stream")

// shellCommand disables echo at the pseudo-terminal level before replacing
// itself with an interactive shell. The invoking terminal already echoes
// keystrokes locally; echoing again inside the container would duplicate
// every character.
var shellCommand = []string{"sh", "-c", "stty -echo; exec sh"}

// Session is an attached, tty-enabled interactive shell inside a running
// container. It exposes an input sink and a source of typed output frames.
type Session struct {
	// ExecID is the engine-assigned exec instance ID.
	ExecID string

	resp   types.HijackedResponse
	frames *frameReader
}

// Attach creates an interactive exec instance inside the named container,
// with stdin/stdout/stderr attached and a pseudo terminal allocated, and
// starts it attached. It fails with ErrNotAttached when the engine returns a
// detached result.
func Attach(ctx context.Context, api engine.API, containerName string) (*Session, error) {
	created, err := api.ContainerExecCreate(ctx, containerName, containertypes.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          true,
		Cmd:          shellCommand,
	})
	if err != nil {
		return nil, fmt.Errorf("create exec: %w", err)
	}

	resp, err := api.ContainerExecAttach(ctx, created.ID, containertypes.ExecAttachOptions{
		Detach: false,
		Tty:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", err)
	}
	if resp.Conn == nil || resp.Reader == nil {
		return nil, ErrNotAttached
	}

	return &Session{
		ExecID: created.ID,
		resp:   resp,
		frames: newFrameReader(resp.Reader, true),
	}, nil
}

// Input returns the session's input sink.
func (s *Session) Input() io.Writer {
	return s.resp.Conn
}

// Next returns the next output frame, or io.EOF when the stream is closed.
func (s *Session) Next() (Frame, error) {
	return s.frames.Next()
}

// Close releases the hijacked connection.
func (s *Session) Close() {
	s.resp.Close()
}
