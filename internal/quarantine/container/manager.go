// Package container manages the lifecycle of the quarantine container: the
// identity-named replace-by-identity cleanup, creation and start, and the
// final teardown.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	containertypes "github.com/docker/docker/api/types/container"

	"github.com/quarantinehq/quarantine/internal/quarantine/engine"
)

const (
	// MountTarget is where the host working directory appears inside the
	// container, and the container's working directory.
	MountTarget = "/quarantine"

	namePrefix = "quarantine-"

	// stopTimeout is how long to wait for graceful container stop before SIGKILL.
	stopTimeout = 10 * time.Second
)

// Identity derives the deterministic container name for an image reference.
// Colons are the only rewritten character, so tagged references stay legal
// container names.
func Identity(image string) string {
	return namePrefix + strings.ReplaceAll(image, ":", "-")
}

// Spec describes the container to create.
type Spec struct {
	// Identity is the derived container name (see Identity).
	Identity string
	// Image is the image reference to run.
	Image string
	// Runtime is the resolved low-level runtime name.
	Runtime string
	// HostDir is the host directory bound to MountTarget.
	HostDir string
}

// Handle identifies the container owned by this invocation.
type Handle struct {
	// ID is the engine-assigned container ID.
	ID string
	// Name is the container's identity name.
	Name string
}

// Manager drives container lifecycle operations against the engine.
type Manager struct {
	api engine.API
}

// NewManager creates a Manager backed by the given engine.
func NewManager(api engine.API) *Manager {
	return &Manager{api: api}
}

// EnsureClean reconciles away any pre-existing container carrying identity.
//
// It lists all containers (stopped ones included) and, for each whose names
// contain identity after stripping one leading path separator: stops it if
// the engine reports it running, then removes it. Containers with no reported
// state are left untouched. Repeated invocations converge to zero containers
// with this identity, making replacement idempotent.
func (m *Manager) EnsureClean(ctx context.Context, identity string) error {
	containers, err := m.api.ContainerList(ctx, containertypes.ListOptions{All: true})
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}

	slog.Info("checking for previous containers", "name", identity)

	for _, c := range containers {
		for _, name := range c.Names {
			if strings.TrimPrefix(name, "/") != identity {
				continue
			}
			if c.State == "" {
				// No state reported: not ours to touch.
				continue
			}
			if strings.EqualFold(c.State, "running") {
				slog.Info("stopping running container", "name", identity)
				if err := m.stop(ctx, identity); err != nil {
					return err
				}
			}
			slog.Info("removing container", "name", identity)
			if err := m.api.ContainerRemove(ctx, identity, containertypes.RemoveOptions{}); err != nil {
				return fmt.Errorf("remove container %s: %w", identity, err)
			}
			break
		}
	}
	return nil
}

// CreateAndStart creates the container described by spec and starts it.
// Failure here is fatal to the run: no retry, no partial rollback.
func (m *Manager) CreateAndStart(ctx context.Context, spec Spec) (Handle, error) {
	hostCfg := &containertypes.HostConfig{
		Runtime: spec.Runtime,
		Binds:   []string{spec.HostDir + ":" + MountTarget},
	}

	// The anonymous volume guarantees the mount point exists inside the
	// container even when the bind fails to attach.
	cfg := &containertypes.Config{
		Image:      spec.Image,
		Tty:        true,
		WorkingDir: MountTarget,
		Volumes:    map[string]struct{}{MountTarget: {}},
	}

	resp, err := m.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Identity)
	if err != nil {
		return Handle{}, fmt.Errorf("create container %s: %w", spec.Identity, err)
	}

	slog.Info("starting container", "id", resp.ID, "name", spec.Identity)
	if err := m.api.ContainerStart(ctx, resp.ID, containertypes.StartOptions{}); err != nil {
		return Handle{}, fmt.Errorf("start container %s: %w", spec.Identity, err)
	}
	slog.Info("container started", "id", resp.ID, "name", spec.Identity)

	return Handle{ID: resp.ID, Name: spec.Identity}, nil
}

// Cleanup stops and removes the identity-named container. It is the
// best-effort epilogue after the session ends; failures are returned to the
// caller rather than retried or suppressed.
func (m *Manager) Cleanup(ctx context.Context, identity string) error {
	slog.Info("stopping container", "name", identity)
	if err := m.stop(ctx, identity); err != nil {
		return err
	}
	slog.Info("removing container", "name", identity)
	if err := m.api.ContainerRemove(ctx, identity, containertypes.RemoveOptions{}); err != nil {
		return fmt.Errorf("remove container %s: %w", identity, err)
	}
	return nil
}

func (m *Manager) stop(ctx context.Context, identity string) error {
	timeout := int(stopTimeout.Seconds())
	if err := m.api.ContainerStop(ctx, identity, containertypes.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("stop container %s: %w", identity, err)
	}
	return nil
}
