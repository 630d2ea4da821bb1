// Package enginetest provides a configurable fake engine.API for tests.
package enginetest

import (
	"context"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/system"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/quarantinehq/quarantine/internal/quarantine/engine"
)

// Fake satisfies engine.API. Each method delegates to the corresponding
// function field when set and otherwise returns a zero value, while Calls
// records every invocation in order (method name plus the argument that
// identifies the target, where there is one).
type Fake struct {
	Calls []string

	InfoFn                func(ctx context.Context) (system.Info, error)
	ImagePullFn           func(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerListFn       func(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerCreateFn     func(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStartFn      func(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStopFn       func(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemoveFn     func(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerExecCreateFn func(ctx context.Context, ctr string, options container.ExecOptions) (types.IDResponse, error)
	ContainerExecAttachFn func(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error)
}

var _ engine.API = (*Fake)(nil)

func (f *Fake) record(call ...string) {
	f.Calls = append(f.Calls, strings.Join(call, " "))
}

func (f *Fake) Info(ctx context.Context) (system.Info, error) {
	f.record("Info")
	if f.InfoFn != nil {
		return f.InfoFn(ctx)
	}
	return system.Info{}, nil
}

func (f *Fake) ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	f.record("ImagePull", refStr)
	if f.ImagePullFn != nil {
		return f.ImagePullFn(ctx, refStr, options)
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *Fake) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	f.record("ContainerList")
	if f.ContainerListFn != nil {
		return f.ContainerListFn(ctx, options)
	}
	return nil, nil
}

func (f *Fake) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	f.record("ContainerCreate", containerName)
	if f.ContainerCreateFn != nil {
		return f.ContainerCreateFn(ctx, config, hostConfig, networkingConfig, platform, containerName)
	}
	return container.CreateResponse{ID: "fake-" + containerName}, nil
}

func (f *Fake) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	f.record("ContainerStart", containerID)
	if f.ContainerStartFn != nil {
		return f.ContainerStartFn(ctx, containerID, options)
	}
	return nil
}

func (f *Fake) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	f.record("ContainerStop", containerID)
	if f.ContainerStopFn != nil {
		return f.ContainerStopFn(ctx, containerID, options)
	}
	return nil
}

func (f *Fake) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	f.record("ContainerRemove", containerID)
	if f.ContainerRemoveFn != nil {
		return f.ContainerRemoveFn(ctx, containerID, options)
	}
	return nil
}

func (f *Fake) ContainerExecCreate(ctx context.Context, ctr string, options container.ExecOptions) (types.IDResponse, error) {
	f.record("ContainerExecCreate", ctr)
	if f.ContainerExecCreateFn != nil {
		return f.ContainerExecCreateFn(ctx, ctr, options)
	}
	return types.IDResponse{ID: "fake-exec"}, nil
}

func (f *Fake) ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error) {
	f.record("ContainerExecAttach", execID)
	if f.ContainerExecAttachFn != nil {
		return f.ContainerExecAttachFn(ctx, execID, config)
	}
	return types.HijackedResponse{}, nil
}
