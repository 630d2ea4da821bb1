package app_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/system"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/quarantinehq/quarantine/internal/quarantine/app"
	"github.com/quarantinehq/quarantine/internal/quarantine/engine/enginetest"
	"github.com/quarantinehq/quarantine/internal/quarantine/session"
)

// blockedReader never yields input, keeping the relay's outcome driven by the
// session's output side alone.
type blockedReader struct{ unblock chan struct{} }

func (r *blockedReader) Read([]byte) (int, error) {
	<-r.unblock
	return 0, errors.New("unblocked")
}

// attachWithBanner wires ContainerExecAttach to one end of an in-memory pipe,
// writes banner on the remote end, and closes it so the session drains to EOF.
func attachWithBanner(f *enginetest.Fake, banner string) {
	f.ContainerExecAttachFn = func(ctx context.Context, execID string, config containertypes.ExecAttachOptions) (types.HijackedResponse, error) {
		local, remote := net.Pipe()
		go func() {
			remote.Write([]byte(banner))
			remote.Close()
		}()
		return types.HijackedResponse{Conn: local, Reader: bufio.NewReader(local)}, nil
	}
}

func baseConfig(out, errOut *bytes.Buffer) app.Config {
	return app.Config{
		Image:           "alpine:latest",
		InputIsTerminal: true,
		Streams: session.Streams{
			In:  &blockedReader{unblock: make(chan struct{})},
			Out: out,
			Err: errOut,
		},
	}
}

func countCalls(calls []string, want string) int {
	n := 0
	for _, c := range calls {
		if c == want {
			n++
		}
	}
	return n
}

func TestRunHappyPath(t *testing.T) {
	fake := &enginetest.Fake{
		InfoFn: func(ctx context.Context) (system.Info, error) {
			return system.Info{DefaultRuntime: "runc"}, nil
		},
	}
	attachWithBanner(fake, "/quarantine $ ")

	var out, errOut bytes.Buffer
	if err := app.Run(context.Background(), fake, baseConfig(&out, &errOut)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := out.String(); got != "/quarantine $ " {
		t.Errorf("relayed output = %q, want %q", got, "/quarantine $ ")
	}

	want := []string{
		"Info",
		"ImagePull alpine:latest",
		"ContainerList",
		"ContainerCreate quarantine-alpine-latest",
		"ContainerStart fake-quarantine-alpine-latest",
		"ContainerExecCreate quarantine-alpine-latest",
		"ContainerExecAttach fake-exec",
		"ContainerStop quarantine-alpine-latest",
		"ContainerRemove quarantine-alpine-latest",
	}
	if len(fake.Calls) != len(want) {
		t.Fatalf("calls = %v, want %v", fake.Calls, want)
	}
	for i, w := range want {
		if fake.Calls[i] != w {
			t.Errorf("call %d = %q, want %q", i, fake.Calls[i], w)
		}
	}
}

func TestRunPersistSkipsTeardown(t *testing.T) {
	fake := &enginetest.Fake{}
	attachWithBanner(fake, "")

	var out, errOut bytes.Buffer
	cfg := baseConfig(&out, &errOut)
	cfg.Persist = true

	if err := app.Run(context.Background(), fake, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, call := range fake.Calls {
		if strings.HasPrefix(call, "ContainerStop") || strings.HasPrefix(call, "ContainerRemove") {
			t.Errorf("persisted run tore down the container: %v", fake.Calls)
		}
	}
}

func TestRunAttachFailureStillCleansUp(t *testing.T) {
	// The default fake returns a detached response, so the session fails
	// after the container is already running.
	fake := &enginetest.Fake{}

	var out, errOut bytes.Buffer
	err := app.Run(context.Background(), fake, baseConfig(&out, &errOut))
	if !errors.Is(err, session.ErrNotAttached) {
		t.Fatalf("Run error = %v, want %v", err, session.ErrNotAttached)
	}

	if n := countCalls(fake.Calls, "ContainerStop quarantine-alpine-latest"); n != 1 {
		t.Errorf("stop calls = %d, want 1 (calls %v)", n, fake.Calls)
	}
	if n := countCalls(fake.Calls, "ContainerRemove quarantine-alpine-latest"); n != 1 {
		t.Errorf("remove calls = %d, want 1 (calls %v)", n, fake.Calls)
	}
}

func TestRunCancelledContextStillTearsDown(t *testing.T) {
	// Stop and remove reject a dead context the way a real engine client
	// would, so teardown only succeeds when it runs detached from the
	// cancelled run context.
	fake := &enginetest.Fake{
		ContainerStopFn: func(ctx context.Context, containerID string, options containertypes.StopOptions) error {
			return ctx.Err()
		},
		ContainerRemoveFn: func(ctx context.Context, containerID string, options containertypes.RemoveOptions) error {
			return ctx.Err()
		},
	}
	attachWithBanner(fake, "")

	// Cancellation ends the session cleanly, and teardown must still reach
	// the engine even though the run context is already dead.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	if err := app.Run(ctx, fake, baseConfig(&out, &errOut)); err != nil {
		t.Fatalf("Run with cancelled context = %v, want nil", err)
	}

	if n := countCalls(fake.Calls, "ContainerStop quarantine-alpine-latest"); n != 1 {
		t.Errorf("stop calls = %d, want 1 (calls %v)", n, fake.Calls)
	}
	if n := countCalls(fake.Calls, "ContainerRemove quarantine-alpine-latest"); n != 1 {
		t.Errorf("remove calls = %d, want 1 (calls %v)", n, fake.Calls)
	}
}

func TestRunCleanupErrorSurfacesAfterCleanSession(t *testing.T) {
	removeErr := errors.New("still in use")
	fake := &enginetest.Fake{
		ContainerRemoveFn: func(ctx context.Context, containerID string, options containertypes.RemoveOptions) error {
			return removeErr
		},
	}
	attachWithBanner(fake, "")

	var out, errOut bytes.Buffer
	err := app.Run(context.Background(), fake, baseConfig(&out, &errOut))
	if !errors.Is(err, removeErr) {
		t.Fatalf("Run error = %v, want to wrap %v", err, removeErr)
	}
}

func TestRunCreateFailureSkipsTeardown(t *testing.T) {
	createErr := errors.New("no such image")
	fake := &enginetest.Fake{
		ContainerCreateFn: func(ctx context.Context, config *containertypes.Config, hostConfig *containertypes.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (containertypes.CreateResponse, error) {
			return containertypes.CreateResponse{}, createErr
		},
	}

	var out, errOut bytes.Buffer
	err := app.Run(context.Background(), fake, baseConfig(&out, &errOut))
	if !errors.Is(err, createErr) {
		t.Fatalf("Run error = %v, want to wrap %v", err, createErr)
	}

	for _, call := range fake.Calls {
		if strings.HasPrefix(call, "ContainerStop") || strings.HasPrefix(call, "ContainerRemove") {
			t.Errorf("teardown ran for a container that never started: %v", fake.Calls)
		}
	}
}

func TestRunInfoFailure(t *testing.T) {
	fake := &enginetest.Fake{
		InfoFn: func(ctx context.Context) (system.Info, error) {
			return system.Info{}, fmt.Errorf("daemon unreachable")
		},
	}

	var out, errOut bytes.Buffer
	err := app.Run(context.Background(), fake, baseConfig(&out, &errOut))
	if err == nil || !strings.Contains(err.Error(), "engine info") {
		t.Fatalf("Run error = %v, want engine info failure", err)
	}
	if len(fake.Calls) != 1 {
		t.Errorf("calls after info failure = %v, want just Info", fake.Calls)
	}
}
